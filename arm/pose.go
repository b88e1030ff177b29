package arm

import "sync/atomic"

// Pose holds the last commanded angle of every joint.
//
// Whichever activity is currently driving the arm writes it; writes are
// absolute positions so the last write wins. Read-modify-write sequences
// (such as the approach increments) are only safe within a single activity.
type Pose struct {
	angles [4]atomic.Int32
}

// NewPose returns a pose at the rest position.
func NewPose() *Pose {
	p := &Pose{}
	p.Reset()
	return p
}

func index(c Channel) (int, bool) {
	switch c {
	case Base:
		return 0, true
	case Shoulder:
		return 1, true
	case Elbow:
		return 2, true
	case Gripper:
		return 3, true
	}
	return 0, false
}

// Get returns the angle of joint c. Non-joint channels read as 0.
func (p *Pose) Get(c Channel) int {
	i, ok := index(c)
	if !ok {
		return 0
	}
	return int(p.angles[i].Load())
}

// Set stores angle for joint c, clamped to its range. Non-joint channels are ignored.
func (p *Pose) Set(c Channel, angle int) {
	i, ok := index(c)
	if !ok {
		return
	}
	p.angles[i].Store(int32(c.Clamp(angle)))
}

// Reset puts every joint back to the rest pose.
func (p *Pose) Reset() {
	for c, a := range RestPose() {
		p.Set(c, a)
	}
}

// Snapshot copies the current angles.
func (p *Pose) Snapshot() map[Channel]int {
	m := make(map[Channel]int, 4)
	for _, c := range Joints() {
		m[c] = p.Get(c)
	}
	return m
}

// RestPose is the canonical rest position of the arm.
func RestPose() map[Channel]int {
	return map[Channel]int{
		Base:     Neutral,
		Shoulder: Neutral,
		Elbow:    Neutral,
		Gripper:  GripperClosed,
	}
}
