package main

import (
	"context"
	"strconv"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/bluefox/agrobot/arm"
	"github.com/bluefox/agrobot/event"
)

type ShellCommand struct{}

func (s *ShellCommand) Execute(args []string) error {
	cfg, cleanup, err := loadConfig()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r, err := newRobot(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer r.Close()

	shell := ishell.New()
	shell.Println("agrobot shell")

	// status messages are printed by the shell instead
	r.bus.Quiet = true
	events, unsubscribe := r.bus.Subscribe(64)
	defer unsubscribe()
	go func() {
		for e := range events {
			if e.Kind == event.Status {
				shell.Println(e.Text)
			}
		}
	}()

	for _, c := range shellCommands(ctx, r) {
		shell.AddCmd(c)
	}
	shell.Run()
	return nil
}

func shellCommands(ctx context.Context, r *robot) []*ishell.Cmd {
	d := r.dispatcher
	report := func(c *ishell.Context, err error) {
		if err != nil {
			c.Println("error:", err)
		}
	}
	oneArg := func(c *ishell.Context) (string, bool) {
		if len(c.Args) != 1 {
			c.Println("expected one argument")
			return "", false
		}
		return c.Args[0], true
	}

	return []*ishell.Cmd{
		{
			Name: "move",
			Help: "move <Base|Shoulder|Elbow|Gripper|Pump> <angle>",
			Func: func(c *ishell.Context) {
				if len(c.Args) != 2 {
					c.Println("usage: move <channel> <angle>")
					return
				}
				angle, err := strconv.Atoi(c.Args[1])
				if err != nil {
					report(c, err)
					return
				}
				report(c, d.Move(c.Args[0], angle))
			},
		},
		{
			Name: "pose",
			Help: "show the commanded joint angles",
			Func: func(c *ishell.Context) {
				snap := r.arm.Pose.Snapshot()
				for _, ch := range arm.Joints() {
					c.Printf("%-8s %3d\n", ch, snap[ch])
				}
			},
		},
		{
			Name: "distance",
			Help: "read the range sensor",
			Func: func(c *ishell.Context) {
				c.Printf("%dcm\n", r.arm.Link.QueryDistance(ctx))
			},
		},
		{
			Name: "ping",
			Help: "run the controller's sensor check",
			Func: func(c *ishell.Context) { d.CheckSensor() },
		},
		{
			Name: "harvest",
			Help: "harvest <RED|GREEN>",
			Func: func(c *ishell.Context) {
				if color, ok := oneArg(c); ok {
					report(c, d.RequestHarvest(color))
				}
			},
		},
		{
			Name: "record",
			Help: "record <start|stop>",
			Func: func(c *ishell.Context) {
				if cmd, ok := oneArg(c); ok {
					report(c, d.Record(cmd))
				}
			},
		},
		{
			Name: "play",
			Help: "play <once|loop|stop>",
			Func: func(c *ishell.Context) {
				if cmd, ok := oneArg(c); ok {
					report(c, d.Play(cmd))
				}
			},
		},
		{
			Name: "steps",
			Help: "list the recorded sequence",
			Func: func(c *ishell.Context) {
				for i, st := range d.Recorder.Steps() {
					c.Printf("%3d %-8s %3d after %s\n", i, st.Channel, st.Angle, st.Delay)
				}
			},
		},
		{
			Name: "home",
			Help: "stop everything and return to the rest pose",
			Func: func(c *ishell.Context) { d.GoHome(ctx) },
		},
		{
			Name: "car",
			Help: "car <w|s|a|d|x|M|U>",
			Func: func(c *ishell.Context) {
				if cmd, ok := oneArg(c); ok {
					report(c, d.Car(strings.TrimSpace(cmd)))
				}
			},
		},
	}
}
