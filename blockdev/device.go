// Package blockdev enumerates whole-disk block devices and reports their size in sectors.
package blockdev

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"

	"zerocheck/execute"
	"zerocheck/logger"
)

// SectorSize is the logical sector size all sector counts are expressed in.
const SectorSize = 512

// Kind is the coarse media classification of a disk.
type Kind int

const (
	KindUnknown Kind = iota
	KindHDD
	KindSSD
)

func (k Kind) String() string {
	switch k {
	case KindHDD:
		return "HDD"
	case KindSSD:
		return "SSD"
	default:
		return "unknown"
	}
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(b []byte) error {
	switch strings.ToUpper(string(b)) {
	case "HDD":
		*k = KindHDD
	case "SSD":
		*k = KindSSD
	default:
		*k = KindUnknown
	}
	return nil
}

// Device is one whole disk as seen by the operating system.
type Device struct {
	Path      string `json:"path"`
	Name      string `json:"name"`
	SizeBytes int64  `json:"size_bytes"`
	Kind      Kind   `json:"kind"`
	Transport string `json:"transport,omitempty"`
	Model     string `json:"model,omitempty"`
	Serial    string `json:"serial,omitempty"`
}

// Sectors is the device size in 512-byte sectors.
func (d Device) Sectors() int64 { return d.SizeBytes / SectorSize }

// HumanSize formats the size the way lsblk does (binary units).
func (d Device) HumanSize() string {
	if d.SizeBytes <= 0 {
		return "-"
	}
	return humanize.IBytes(uint64(d.SizeBytes))
}

// IsSSD reports whether the device was classified as solid state. Other media still get the
// secure-erase query, annotated.
func (d Device) IsSSD() bool { return d.Kind == KindSSD }

// Lister enumerates disks with lsblk and falls back to scanning /dev.
type Lister struct {
	Runner execute.Runner
	Lsblk  string
}

// List returns every whole disk. Partitions, loop devices and ROM drives are skipped.
func (l Lister) List(ctx context.Context) ([]Device, error) {
	log := logger.FromContext(ctx)

	lsblk := l.Lsblk
	if lsblk == "" {
		lsblk = "lsblk"
	}
	if l.Runner != nil {
		out, err := l.Runner.Run(ctx, lsblk, "-J", "-b", "-d", "-o", "NAME,PATH,SIZE,TYPE,TRAN,ROTA,MODEL,SERIAL")
		if err == nil {
			devs, perr := parseLsblk(out)
			if perr == nil {
				log.Debug().Int("count", len(devs)).Msg("disks listed with lsblk")
				return devs, nil
			}
			err = perr
		}
		log.Debug().Err(err).Msg("lsblk unavailable, scanning /dev")
	}
	return scan()
}

// lsblkOutput is the subset of `lsblk -J` used here. Older util-linux releases print
// numbers and booleans as strings, hence the flexible field types.
type lsblkOutput struct {
	BlockDevices []struct {
		Name   string   `json:"name"`
		Path   string   `json:"path"`
		Size   flexInt  `json:"size"`
		Type   string   `json:"type"`
		Tran   *string  `json:"tran"`
		Rota   flexBool `json:"rota"`
		Model  *string  `json:"model"`
		Serial *string  `json:"serial"`
	} `json:"blockdevices"`
}

func parseLsblk(b []byte) ([]Device, error) {
	var out lsblkOutput
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, errors.Wrap(err, "parse lsblk output")
	}
	devs := make([]Device, 0, len(out.BlockDevices))
	for _, bd := range out.BlockDevices {
		if bd.Type != "disk" {
			continue
		}
		d := Device{
			Name:      bd.Name,
			Path:      bd.Path,
			SizeBytes: int64(bd.Size),
			Transport: deref(bd.Tran),
			Model:     deref(bd.Model),
			Serial:    deref(bd.Serial),
		}
		if d.Path == "" {
			d.Path = "/dev/" + bd.Name
		}
		d.Kind = classify(d.Transport, bd.Rota)
		devs = append(devs, d)
	}
	return devs, nil
}

func classify(tran string, rota flexBool) Kind {
	if strings.EqualFold(tran, "nvme") {
		return KindSSD
	}
	switch {
	case !rota.set:
		return KindUnknown
	case rota.v:
		return KindHDD
	default:
		return KindSSD
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

type flexInt int64

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return err
	}
	*f = flexInt(v)
	return nil
}

type flexBool struct {
	v, set bool
}

func (f *flexBool) UnmarshalJSON(b []byte) error {
	switch strings.Trim(string(b), `"`) {
	case "true", "1":
		*f = flexBool{v: true, set: true}
	case "false", "0":
		*f = flexBool{v: false, set: true}
	default:
		*f = flexBool{}
	}
	return nil
}
