package actuator

import (
	"errors"
	"strconv"
	"strings"

	"github.com/bluefox/agrobot/arm"
)

const distanceLabel = "D:"

func formatCommand(ch arm.Channel, angle int) []byte {
	return []byte(strconv.Itoa(int(ch)) + "," + strconv.Itoa(angle) + "\n")
}

func hasDistanceLabel(line string) bool {
	return strings.Contains(line, distanceLabel)
}

func parseDistance(line string) (int, error) {
	i := strings.Index(line, distanceLabel)
	if i < 0 {
		return 0, errors.New("missing distance label: " + line)
	}
	value := strings.TrimSpace(line[i+len(distanceLabel):])
	d, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.New("invalid distance: " + line)
	}
	return d, nil
}
