package check

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zerocheck/erase"
	"zerocheck/execute"
	"zerocheck/sampler"
)

func image(t *testing.T, sectors int, dirty ...int) string {
	t.Helper()
	buf := make([]byte, sectors*sampler.SectorSize)
	for _, s := range dirty {
		buf[s*sampler.SectorSize+7] = 0xA5
	}
	p := filepath.Join(t.TempDir(), "disk.img")
	require.NoError(t, os.WriteFile(p, buf, 0o644))
	return p
}

// fixed always yields the same sector.
type fixed int64

func (f fixed) Int64N(int64) int64 { return int64(f) }

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"1": Fast, "fast": Fast, " FAST ": Fast,
		"2": Standard, "standard": Standard,
		"3": Deep, "deep": Deep,
		"4": SsdSanitize, "ssd": SsdSanitize, "sanitize": SsdSanitize,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, bad := range []string{"", "0", "5", "thorough"} {
		_, err := ParseLevel(bad)
		assert.Error(t, err, bad)
	}
}

func TestLevelSamples(t *testing.T) {
	assert.Equal(t, int64(24900), Fast.Samples())
	assert.Equal(t, int64(74700), Standard.Samples())
	assert.Equal(t, int64(149400), Deep.Samples())
	assert.Equal(t, int64(0), SsdSanitize.Samples())
	assert.False(t, SsdSanitize.Sampling())
	assert.Less(t, Fast.Estimate(), Standard.Estimate())
	assert.Less(t, Standard.Estimate(), Deep.Estimate())
	assert.Contains(t, Deep.Describe(), "149400")
}

func TestRun_SamplingPass(t *testing.T) {
	p := image(t, 256)
	c := &Checker{}
	rep := c.Run(context.Background(), Request{Device: p, Level: Fast}, sampler.WithSeed(1))

	require.NoError(t, rep.Err)
	assert.Equal(t, Pass, rep.Status)
	assert.True(t, rep.Passed())
	assert.Equal(t, 0, rep.ExitCode())
	assert.Equal(t, int64(256), rep.Sectors)
	require.NotNil(t, rep.Sampling)
	assert.Equal(t, Fast.Samples(), rep.Sampling.Reads)
}

func TestRun_SamplingFail(t *testing.T) {
	p := image(t, 64, 40)
	c := &Checker{Options: []sampler.Option{sampler.WithSource(fixed(40))}}
	rep := c.Run(context.Background(), Request{Device: p, Level: Standard})

	require.NoError(t, rep.Err)
	assert.Equal(t, Fail, rep.Status)
	assert.Equal(t, 1, rep.ExitCode())
	require.NotNil(t, rep.Sampling)
	assert.Equal(t, int64(40), rep.Sampling.Sector)
	assert.Equal(t, int64(40*sampler.SectorSize+7), rep.Sampling.Offset)
	assert.Equal(t, int64(1), rep.Sampling.Reads)
}

func TestRun_SectorOverride(t *testing.T) {
	called := false
	c := &Checker{SectorCount: func(string) (int64, error) {
		called = true
		return 0, errors.New("should not be asked")
	}}
	p := image(t, 16)
	rep := c.Run(context.Background(), Request{Device: p, Level: Fast, Sectors: 8}, sampler.WithSeed(3))

	require.NoError(t, rep.Err)
	assert.False(t, called)
	assert.Equal(t, int64(8), rep.Sectors)
	assert.Equal(t, Pass, rep.Status)
}

func TestRun_Errors(t *testing.T) {
	t.Run("sector count", func(t *testing.T) {
		c := &Checker{SectorCount: func(string) (int64, error) { return 0, errors.New("ioctl failed") }}
		rep := c.Run(context.Background(), Request{Device: "/dev/sdz", Level: Deep})
		require.Error(t, rep.Err)
		assert.Equal(t, Error, rep.Status)
		assert.Equal(t, 2, rep.ExitCode())
		assert.Nil(t, rep.Sampling)
	})

	t.Run("empty device", func(t *testing.T) {
		p := filepath.Join(t.TempDir(), "empty.img")
		require.NoError(t, os.WriteFile(p, nil, 0o644))
		rep := (&Checker{}).Run(context.Background(), Request{Device: p, Level: Fast})
		assert.ErrorIs(t, rep.Err, sampler.ErrNoSectors)
		assert.Equal(t, 2, rep.ExitCode())
	})

	t.Run("permission", func(t *testing.T) {
		c := &Checker{Options: []sampler.Option{sampler.WithOpener(func(p string) (sampler.Device, error) {
			return nil, &os.PathError{Op: "open", Path: p, Err: os.ErrPermission}
		})}}
		rep := c.Run(context.Background(), Request{Device: "/dev/sdz", Level: Fast, Sectors: 100})
		require.Error(t, rep.Err)
		var oe *sampler.DeviceOpenError
		assert.True(t, errors.As(rep.Err, &oe))
		assert.NotEmpty(t, errors.GetAllHints(rep.Err))
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		rep := (&Checker{}).Run(ctx, Request{Device: image(t, 8), Level: Fast})
		assert.ErrorIs(t, rep.Err, sampler.ErrInterrupted)
		assert.Equal(t, Error, rep.Status)
	})

	t.Run("no device", func(t *testing.T) {
		rep := (&Checker{}).Run(context.Background(), Request{Level: Fast})
		require.Error(t, rep.Err)
	})

	t.Run("bad level", func(t *testing.T) {
		rep := (&Checker{}).Run(context.Background(), Request{Device: "/dev/sda", Level: Level(9)})
		require.Error(t, rep.Err)
	})
}

func TestRun_SsdSanitize(t *testing.T) {
	var ran []string
	runner := execute.RunnerFunc(func(_ context.Context, name string, args ...string) ([]byte, error) {
		ran = append(ran, name)
		switch name {
		case "nvme":
			return []byte("Sanitize Status (SSTAT) : 0x101\nsanitize completed\n"), nil
		default:
			return []byte("Security:\n\t\tsupported\n\tnot\tenabled\n"), nil
		}
	})
	c := &Checker{Verifier: erase.New(runner)}

	rep := c.Run(context.Background(), Request{Device: "/dev/nvme0n1", Level: SsdSanitize})
	require.NoError(t, rep.Err)
	assert.Equal(t, Pass, rep.Status)
	require.NotNil(t, rep.Erase)
	assert.Equal(t, erase.Verified, rep.Erase.Verdict)

	rep = c.Run(context.Background(), Request{Device: "/dev/sdb", Level: SsdSanitize})
	require.NoError(t, rep.Err)
	assert.Equal(t, Fail, rep.Status)

	// An explicit family beats the device name.
	rep = c.Run(context.Background(), Request{Device: "/dev/sdc", Level: SsdSanitize, Family: erase.FamilyNVMe})
	assert.Equal(t, Pass, rep.Status)

	assert.Equal(t, []string{"nvme", "hdparm", "nvme"}, ran)
}

func TestRun_SsdSanitizeToolError(t *testing.T) {
	runner := execute.RunnerFunc(func(context.Context, string, ...string) ([]byte, error) {
		return nil, errors.New("exit status 1")
	})
	rep := (&Checker{Verifier: erase.New(runner)}).Run(context.Background(), Request{Device: "/dev/sda", Level: SsdSanitize})

	var ce *erase.CollaboratorError
	require.True(t, errors.As(rep.Err, &ce))
	assert.Equal(t, "hdparm", ce.Tool)
	assert.Equal(t, 2, rep.ExitCode())

	rep = (&Checker{}).Run(context.Background(), Request{Device: "/dev/sda", Level: SsdSanitize})
	require.Error(t, rep.Err)
}
