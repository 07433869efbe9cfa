package utils

import "time"

// Command timeouts
const (
	MountTimeout  = 30 * time.Second
	UmountTimeout = 10 * time.Second
	ProbeTimeout  = 10 * time.Second
)

// DefaultRsyncTimeoutSeconds is the default per-folder rsync timeout
const DefaultRsyncTimeoutSeconds = 300

// Schema version
const SchemaVersion = "1.0"

// External binaries the tool shells out to
const (
	BinMount      = "mount"
	BinUmount     = "umount"
	BinMountpoint = "mountpoint"
	BinShowmount  = "showmount"
	BinRsync      = "rsync"
)
