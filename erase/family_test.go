package erase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectFamily(t *testing.T) {
	cases := map[string]Family{
		"/dev/nvme0n1":   FamilyNVMe,
		"/dev/nvme10n3":  FamilyNVMe,
		"nvme0n1":        FamilyNVMe,
		"/dev/sda":       FamilySATA,
		"/dev/sdb":       FamilySATA,
		"/dev/mmcblk0":   FamilySATA,
		"/tmp/nvme/disk": FamilySATA,
	}
	for path, want := range cases {
		t.Run(path, func(t *testing.T) {
			assert.Equal(t, want, DetectFamily(path))
		})
	}
}

func TestFamilyFromTransport(t *testing.T) {
	assert.Equal(t, FamilyNVMe, FamilyFromTransport("nvme"))
	assert.Equal(t, FamilySATA, FamilyFromTransport("sata"))
	assert.Equal(t, FamilySATA, FamilyFromTransport("ATA"))
	assert.Equal(t, FamilyUnknown, FamilyFromTransport("usb"))
	assert.Equal(t, FamilyUnknown, FamilyFromTransport(""))
}

func TestParseFamily(t *testing.T) {
	for in, want := range map[string]Family{"": FamilyUnknown, "auto": FamilyUnknown, "SATA": FamilySATA, "nvme": FamilyNVMe} {
		got, err := ParseFamily(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFamily("scsi")
	require.Error(t, err)
}
