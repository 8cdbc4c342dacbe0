package netconf

import (
	"github.com/H1Skaak/g3/internal/yamlconf"
)

// DefaultShiftMillis is the speed limit accounting window.
const DefaultShiftMillis = 10

// SpeedLimit caps the bytes a socket may transfer per accounting window.
// Zero means unlimited in that direction.
type SpeedLimit struct {
	ShiftMillis uint8
	// MaxNorth is the upload limit (client to remote) per window.
	MaxNorth uint64
	// MaxSouth is the download limit (remote to client) per window.
	MaxSouth uint64
}

// IsUnlimited reports whether neither direction is limited.
func (l SpeedLimit) IsUnlimited() bool { return l.MaxNorth == 0 && l.MaxSouth == 0 }

var _speedLimitKeys = yamlconf.NewAliases(
	[]string{"shift_millis", "shift"},
	[]string{"upload", "north", "upload_bytes", "north_bytes"},
	[]string{"download", "south", "download_bytes", "south_bytes"},
)

// ParseSpeedLimit converts a size, applied to both directions, or a mapping
// with per direction limits.
func ParseSpeedLimit(c *yamlconf.Context, v yamlconf.Node) (SpeedLimit, error) {
	l := SpeedLimit{ShiftMillis: DefaultShiftMillis}

	if v.Kind() == yamlconf.KindScalar {
		n, err := yamlconf.AsSize(v)
		if err != nil {
			return SpeedLimit{}, err
		}
		l.MaxNorth, l.MaxSouth = n, n
		return l, nil
	}

	err := _speedLimitKeys.ForEachKV(c, v, func(k string, v yamlconf.Node) error {
		var err error
		switch k {
		case "shift_millis":
			l.ShiftMillis, err = yamlconf.AsUint8(v)
			if err == nil && l.ShiftMillis == 0 {
				err = yamlconf.NewError(yamlconf.ErrOutOfRange, v, "shift must be at least 1ms")
			}
		case "upload":
			l.MaxNorth, err = yamlconf.AsSize(v)
		case "download":
			l.MaxSouth, err = yamlconf.AsSize(v)
		default:
			err = yamlconf.UnknownKey(k, v)
		}
		return err
	})
	if err != nil {
		return SpeedLimit{}, err
	}
	return l, nil
}
