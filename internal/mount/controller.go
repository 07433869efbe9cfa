package mount

import (
	"context"
	"fmt"
	"os"
	"strings"

	"nfsync/internal/config"
	"nfsync/internal/creds"
	"nfsync/internal/logging"
	"nfsync/internal/utils"
)

// CredentialSource yields the stored mount credential
type CredentialSource interface {
	Get(name string) (creds.Credential, error)
}

// Controller mounts and unmounts the configured share by shelling out to
// the OS mount utilities.
type Controller struct {
	cfg    *config.Config
	runner Runner
	source CredentialSource
	logger logging.Logger
	// useSudo wraps mount/umount in sudo -S with the stored credential
	// password on stdin. Set when not running as root.
	useSudo bool
}

// Options configures the controller
type Options struct {
	Runner  Runner
	Source  CredentialSource
	Logger  logging.Logger
	UseSudo bool
}

// NewController creates a mount controller for the given config
func NewController(cfg *config.Config, opts Options) *Controller {
	runner := opts.Runner
	if runner == nil {
		runner = NewExecRunner()
	}
	logger := opts.Logger
	if logger == nil {
		logger = &logging.NoOpLogger{}
	}
	return &Controller{
		cfg:     cfg,
		runner:  runner,
		source:  opts.Source,
		logger:  logger,
		useSudo: opts.UseSudo,
	}
}

// NeedsSudo reports whether mount operations require privilege escalation
func NeedsSudo() bool {
	return os.Geteuid() != 0
}

// IsMounted reports whether the mount point currently has a filesystem
// mounted on it, via mountpoint -q.
func (c *Controller) IsMounted(ctx context.Context) bool {
	if c.cfg.MountPoint == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, utils.ProbeTimeout)
	defer cancel()

	_, _, err := c.runner.Run(ctx, utils.BinMountpoint, []string{"-q", c.cfg.MountPoint}, "")
	if err == nil {
		return true
	}
	// A non-zero exit means "not a mountpoint"; anything else (binary
	// missing, timeout) is worth a trace.
	if !IsExitError(err) {
		c.logger.Debug("mountpoint check failed", logging.F("error", err.Error()))
	}
	return false
}

// Mount mounts the configured share. Mounting an already-mounted share is
// a no-op.
func (c *Controller) Mount(ctx context.Context) error {
	if c.cfg.Server == "" || c.cfg.Share == "" || c.cfg.MountPoint == "" {
		return fmt.Errorf("incomplete share configuration: server, share and mount point are required")
	}

	if c.IsMounted(ctx) {
		c.logger.Debug("share already mounted", logging.F("mountPoint", c.cfg.MountPoint))
		return nil
	}

	if err := c.runner.LookPath(utils.BinMount); err != nil {
		return fmt.Errorf("mount binary not found: %w", err)
	}

	if err := os.MkdirAll(c.cfg.MountPoint, 0755); err != nil {
		return fmt.Errorf("failed to create mount point %s: %w", c.cfg.MountPoint, err)
	}

	args, stdin, err := c.mountArgs()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, utils.MountTimeout)
	defer cancel()

	name := args[0]
	c.logger.Info("mounting share",
		logging.F("share", c.cfg.SharePath()),
		logging.F("mountPoint", c.cfg.MountPoint),
		logging.F("protocol", string(c.cfg.Protocol)))

	stdout, stderr, err := c.runner.Run(ctx, name, args[1:], stdin)
	if err != nil {
		msg := strings.TrimSpace(stderr)
		if msg == "" {
			msg = strings.TrimSpace(stdout)
		}
		if msg == "" {
			msg = err.Error()
		}
		c.logger.Error("mount failed", logging.F("error", msg))
		return fmt.Errorf("mount failed: %s", msg)
	}

	c.logger.Info("share mounted", logging.F("mountPoint", c.cfg.MountPoint))
	return nil
}

// Unmount unmounts the share. Unmounting when nothing is mounted is a no-op.
func (c *Controller) Unmount(ctx context.Context) error {
	if c.cfg.MountPoint == "" {
		return fmt.Errorf("no mount point configured")
	}

	if !c.IsMounted(ctx) {
		c.logger.Debug("share not mounted", logging.F("mountPoint", c.cfg.MountPoint))
		return nil
	}

	args := []string{utils.BinUmount, c.cfg.MountPoint}
	stdin := ""
	if c.useSudo {
		cred, err := c.credential()
		if err != nil {
			return err
		}
		args = append([]string{"sudo", "-S"}, args...)
		stdin = cred.Password + "\n"
	}

	ctx, cancel := context.WithTimeout(ctx, utils.UmountTimeout)
	defer cancel()

	stdout, stderr, err := c.runner.Run(ctx, args[0], args[1:], stdin)
	if err != nil {
		msg := strings.TrimSpace(stderr)
		if msg == "" {
			msg = strings.TrimSpace(stdout)
		}
		c.logger.Error("unmount failed", logging.F("error", msg))
		return fmt.Errorf("unmount failed: %s", msg)
	}

	c.logger.Info("share unmounted", logging.F("mountPoint", c.cfg.MountPoint))
	return nil
}

// Probe tests that the server exports the configured share without
// mounting it, via showmount -e. NFS only.
func (c *Controller) Probe(ctx context.Context) error {
	if c.cfg.Server == "" || c.cfg.Share == "" {
		return fmt.Errorf("server and share are required")
	}
	if c.cfg.Protocol != config.ProtocolNFS {
		return fmt.Errorf("probe is only supported for nfs shares")
	}
	if err := c.runner.LookPath(utils.BinShowmount); err != nil {
		return fmt.Errorf("showmount not installed (nfs-common required): %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, utils.ProbeTimeout)
	defer cancel()

	stdout, stderr, err := c.runner.Run(ctx, utils.BinShowmount, []string{"-e", c.cfg.Server}, "")
	if err != nil {
		msg := strings.TrimSpace(stderr)
		if msg == "" {
			msg = err.Error()
		}
		return fmt.Errorf("server unreachable: %s", msg)
	}

	if !strings.Contains(stdout, c.cfg.Share) {
		return fmt.Errorf("server reachable, but share %q not exported", c.cfg.Share)
	}
	return nil
}

// mountArgs builds the full mount argv and stdin for the configured share
func (c *Controller) mountArgs() (args []string, stdin string, err error) {
	options := append([]string{}, c.cfg.MountOptions...)

	switch c.cfg.Protocol {
	case config.ProtocolCIFS:
		cred, err := c.credential()
		if err != nil {
			return nil, "", err
		}
		options = append(options,
			"username="+cred.Username,
			"password="+cred.Password,
		)
	case config.ProtocolNFS:
		// Credential only needed for sudo below
	}

	args = []string{utils.BinMount, "-t", string(c.cfg.Protocol), c.cfg.SharePath(), c.cfg.MountPoint}
	if len(options) > 0 {
		args = append(args, "-o", strings.Join(options, ","))
	}

	if c.useSudo {
		cred, err := c.credential()
		if err != nil {
			return nil, "", err
		}
		args = append([]string{"sudo", "-S"}, args...)
		stdin = cred.Password + "\n"
	}

	return args, stdin, nil
}

func (c *Controller) credential() (creds.Credential, error) {
	if c.source == nil {
		return creds.Credential{}, fmt.Errorf("no credential store configured")
	}
	cred, err := c.source.Get(creds.MountCredential)
	if err != nil {
		return creds.Credential{}, fmt.Errorf("mount credential not available: %w", err)
	}
	return cred, nil
}
