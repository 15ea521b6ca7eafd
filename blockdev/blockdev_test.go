package blockdev

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zerocheck/execute"
)

const lsblkModern = `{
   "blockdevices": [
      {"name":"sda", "path":"/dev/sda", "size":500107862016, "type":"disk", "tran":"sata", "rota":false, "model":"Samsung SSD 860", "serial":"S3Z9NB0K123456"},
      {"name":"sdb", "path":"/dev/sdb", "size":2000398934016, "type":"disk", "tran":"sata", "rota":true, "model":"WDC WD20EZRZ", "serial":"WD-WCC4M1234567"},
      {"name":"nvme0n1", "path":"/dev/nvme0n1", "size":1024209543168, "type":"disk", "tran":"nvme", "rota":false, "model":"WD_BLACK SN770", "serial":"22123A456789"},
      {"name":"sr0", "path":"/dev/sr0", "size":1073741312, "type":"rom", "tran":"sata", "rota":true, "model":"DVD", "serial":null},
      {"name":"loop0", "path":"/dev/loop0", "size":4096, "type":"loop", "tran":null, "rota":false, "model":null, "serial":null}
   ]
}`

// util-linux before 2.33 printed numbers and flags as strings and had no PATH column.
const lsblkLegacy = `{
   "blockdevices": [
      {"name": "sdc", "size": "31914983424", "type": "disk", "tran": "usb", "rota": "1", "model": "Ultra Fit       ", "serial": "4C530001"},
      {"name": "vda", "size": "10737418240", "type": "disk", "tran": null, "rota": null, "model": null, "serial": null}
   ]
}`

func TestParseLsblk(t *testing.T) {
	t.Run("modern", func(t *testing.T) {
		devs, err := parseLsblk([]byte(lsblkModern))
		require.NoError(t, err)
		require.Len(t, devs, 3)

		assert.Equal(t, Device{Path: "/dev/sda", Name: "sda", SizeBytes: 500107862016, Kind: KindSSD, Transport: "sata", Model: "Samsung SSD 860", Serial: "S3Z9NB0K123456"}, devs[0])
		assert.Equal(t, KindHDD, devs[1].Kind)
		assert.Equal(t, KindSSD, devs[2].Kind)
		assert.Equal(t, "nvme", devs[2].Transport)
		assert.Equal(t, int64(500107862016/512), devs[0].Sectors())
	})

	t.Run("legacy", func(t *testing.T) {
		devs, err := parseLsblk([]byte(lsblkLegacy))
		require.NoError(t, err)
		require.Len(t, devs, 2)
		assert.Equal(t, "/dev/sdc", devs[0].Path)
		assert.Equal(t, int64(31914983424), devs[0].SizeBytes)
		assert.Equal(t, KindHDD, devs[0].Kind)
		assert.Equal(t, "Ultra Fit", devs[0].Model)
		assert.Equal(t, KindUnknown, devs[1].Kind)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := parseLsblk([]byte("NAME SIZE\nsda 500G"))
		require.Error(t, err)
	})
}

func TestLister_UsesLsblk(t *testing.T) {
	var gotName string
	var gotArgs []string
	r := execute.RunnerFunc(func(_ context.Context, name string, args ...string) ([]byte, error) {
		gotName, gotArgs = name, args
		return []byte(lsblkModern), nil
	})
	devs, err := Lister{Runner: r, Lsblk: "/sbin/lsblk"}.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, devs, 3)
	assert.Equal(t, "/sbin/lsblk", gotName)
	assert.Contains(t, gotArgs, "-J")
	assert.Contains(t, gotArgs, "-d")
}

func TestLister_FallsBackToSysfs(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("sysfs fallback is Linux only")
	}
	root := t.TempDir()
	mk := func(parts ...string) {
		p := filepath.Join(append([]string{root}, parts[:len(parts)-1]...)...)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(parts[len(parts)-1]+"\n"), 0o644))
	}
	mk("sda", "size", "1953525168")
	mk("sda", "queue", "rotational", "1")
	mk("sda", "device", "model", "ST1000DM003")
	mk("nvme0n1", "size", "2000409264")
	mk("nvme0n1", "queue", "rotational", "0")
	mk("sda1", "size", "2048")
	mk("loop0", "size", "8")

	oldSys, oldDev := sysBlock, devDir
	sysBlock, devDir = root, "/dev"
	t.Cleanup(func() { sysBlock, devDir = oldSys, oldDev })

	r := execute.RunnerFunc(func(context.Context, string, ...string) ([]byte, error) {
		return nil, errors.New("lsblk: not found")
	})
	devs, err := Lister{Runner: r}.List(context.Background())
	require.NoError(t, err)

	require.Len(t, devs, 2)
	byName := map[string]Device{}
	for _, d := range devs {
		byName[d.Name] = d
	}
	assert.Equal(t, int64(1953525168*512), byName["sda"].SizeBytes)
	assert.Equal(t, KindHDD, byName["sda"].Kind)
	assert.Equal(t, "ST1000DM003", byName["sda"].Model)
	assert.Equal(t, "/dev/nvme0n1", byName["nvme0n1"].Path)
	assert.Equal(t, KindSSD, byName["nvme0n1"].Kind)
	assert.Equal(t, "nvme", byName["nvme0n1"].Transport)
}

func TestDeviceNamePatterns(t *testing.T) {
	whole := []string{"sda", "sdz", "sdaa", "vdb", "xvda", "nvme0n1", "nvme12n3", "mmcblk0"}
	parts := []string{"sda1", "sdb12", "vdb3", "nvme0n1p1", "mmcblk0p2"}
	other := []string{"loop0", "tty1", "nvme0", "sr0", "dm-0"}

	for _, n := range whole {
		assert.True(t, isWholeLinuxDevice(n), n)
		assert.False(t, isPartitionLinux(n), n)
	}
	for _, n := range parts {
		assert.True(t, isPartitionLinux(n), n)
		assert.False(t, isWholeLinuxDevice(n), n)
	}
	for _, n := range other {
		assert.False(t, isWholeLinuxDevice(n), n)
		assert.False(t, isPartitionLinux(n), n)
	}
}

func TestWholeDiskOf(t *testing.T) {
	cases := map[string]string{
		"/dev/sda1":       "/dev/sda",
		"/dev/sdb12":      "/dev/sdb",
		"/dev/nvme0n1p3":  "/dev/nvme0n1",
		"/dev/mmcblk0p1":  "/dev/mmcblk0",
		"/dev/disk2s1":    "/dev/disk2",
		"/dev/rdisk4s2":   "/dev/rdisk4",
		"/dev/sda":        "/dev/sda",
		"/dev/nvme0n1":    "/dev/nvme0n1",
		"/dev/mapper/foo": "/dev/mapper/foo",
	}
	for in, want := range cases {
		assert.Equal(t, want, wholeDiskOf(in), in)
	}
}

func TestSectorCount(t *testing.T) {
	dir := t.TempDir()

	img := filepath.Join(dir, "disk.img")
	require.NoError(t, os.WriteFile(img, make([]byte, 1024*SectorSize+100), 0o644))
	n, err := SectorCount(img)
	require.NoError(t, err)
	assert.Equal(t, int64(1024), n)

	empty := filepath.Join(dir, "empty.img")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	n, err = SectorCount(empty)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	_, err = SectorCount(filepath.Join(dir, "missing"))
	require.Error(t, err)
}

func TestMountsOf(t *testing.T) {
	old := partitions
	t.Cleanup(func() { partitions = old })
	partitions = func(context.Context) ([]disk.PartitionStat, error) {
		return []disk.PartitionStat{
			{Device: "/dev/sda1", Mountpoint: "/", Fstype: "ext4"},
			{Device: "/dev/sda2", Mountpoint: "/home", Fstype: "xfs"},
			{Device: "/dev/sdb1", Mountpoint: "/media/usb", Fstype: "vfat"},
			{Device: "/dev/nvme0n1p1", Mountpoint: "/boot/efi", Fstype: "vfat"},
		}, nil
	}

	mounts, err := MountedPartitions(context.Background(), "/dev/sda")
	require.NoError(t, err)
	require.Len(t, mounts, 2)
	assert.Equal(t, "/home", mounts[1].MountPoint)

	mounts, err = MountedPartitions(context.Background(), "/dev/nvme0n1")
	require.NoError(t, err)
	require.Len(t, mounts, 1)

	mounts, err = MountedPartitions(context.Background(), "/dev/sdc")
	require.NoError(t, err)
	assert.Empty(t, mounts)
}

func TestDescribe_MountPoint(t *testing.T) {
	oldParts, oldSerial := partitions, serialNumber
	t.Cleanup(func() { partitions, serialNumber = oldParts, oldSerial })
	partitions = func(context.Context) ([]disk.PartitionStat, error) {
		return []disk.PartitionStat{{Device: "/dev/sdb1", Mountpoint: "/media/usb", Fstype: "vfat"}}, nil
	}
	serialNumber = func(context.Context, string) (string, error) { return " 4C530001 ", nil }

	d, err := Describe(context.Background(), "/media/usb/")
	require.NoError(t, err)
	assert.Equal(t, "/dev/sdb1", d.Device)
	assert.Equal(t, "/dev/sdb", d.Whole)
	assert.Equal(t, "/media/usb", d.MountPoint)
	assert.Equal(t, "4C530001", d.Serial)
	require.Len(t, d.Mounts, 1)

	_, err = Describe(context.Background(), "/not/mounted")
	require.Error(t, err)
}

func TestKindAndSize(t *testing.T) {
	assert.Equal(t, "SSD", KindSSD.String())
	assert.Equal(t, "HDD", KindHDD.String())
	assert.Equal(t, "unknown", KindUnknown.String())
	assert.Equal(t, "-", Device{}.HumanSize())
	assert.Equal(t, "1.0 KiB", Device{SizeBytes: 1024}.HumanSize())
	assert.True(t, Device{Kind: KindSSD}.IsSSD())
}
