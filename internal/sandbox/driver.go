// Package sandbox is the only component permitted to speak to the container
// runtime. It never returns raw runtime objects to callers; bots are
// addressed by an opaque handle string.
package sandbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/docker/go-units"

	"bothive/internal/logging"
	"bothive/internal/runtimes"
	"bothive/pkg/models"
)

// dockerSocket is fixed on purpose: honoring DOCKER_HOST or other ambient
// configuration would let the environment redirect sandbox operations to an
// arbitrary endpoint.
const dockerSocket = "unix:///var/run/docker.sock"

const cpuPeriod = 100000

// DefaultStopTimeout is the graceful window before the runtime
// force-terminates a container on stop/restart.
const DefaultStopTimeout = 10 * time.Second

// CreateOptions carries everything needed to create a sandbox for a bot.
type CreateOptions struct {
	BotID      int64
	Runtime    runtimes.Runtime
	StartCmd   string // empty means the runtime default
	CPULimit   string // fraction of one core, e.g. "0.5"
	RAMLimit   string // human size, e.g. "256m"
	SourcePath string // host directory mounted read-only at the workdir
}

// Driver abstracts the container runtime for the lifecycle manager and the
// log broker.
type Driver interface {
	Create(ctx context.Context, opts CreateOptions) (string, error)
	Start(ctx context.Context, handle string) error
	Stop(ctx context.Context, handle string, timeout time.Duration) error
	Restart(ctx context.Context, handle string, timeout time.Duration) error
	Remove(ctx context.Context, handle string, force bool) error
	Status(ctx context.Context, handle string) (models.BotStatus, error)
	TailLogs(ctx context.Context, handle string, tail int) (string, error)
	FollowLogs(ctx context.Context, handle string) (<-chan string, <-chan error, error)
	Ping(ctx context.Context) error
}

// DockerDriver implements Driver over a lazily-initialized, process-wide
// Docker client bound to the local unix socket.
type DockerDriver struct {
	initOnce sync.Once
	cli      *client.Client
	initErr  error
}

func NewDockerDriver() *DockerDriver {
	return &DockerDriver{}
}

func (d *DockerDriver) client() (*client.Client, error) {
	d.initOnce.Do(func() {
		// Purge DOCKER_HOST so nothing downstream can pick it up either.
		if host := os.Getenv("DOCKER_HOST"); host != "" {
			logging.Info("Ignoring DOCKER_HOST=%s, using %s", host, dockerSocket)
			os.Unsetenv("DOCKER_HOST")
		}

		cli, err := client.NewClientWithOpts(
			client.WithHost(dockerSocket),
			client.WithAPIVersionNegotiation(),
		)
		if err != nil {
			d.initErr = fmt.Errorf("failed to create docker client: %w", err)
			return
		}
		d.cli = cli
	})
	return d.cli, d.initErr
}

func (d *DockerDriver) Ping(ctx context.Context) error {
	cli, err := d.client()
	if err != nil {
		return err
	}
	if _, err := cli.Ping(ctx); err != nil {
		return models.WrapError(models.KindSandboxOp, err, "Container runtime unavailable")
	}
	return nil
}

func (d *DockerDriver) Create(ctx context.Context, opts CreateOptions) (string, error) {
	cli, err := d.client()
	if err != nil {
		return "", models.WrapError(models.KindSandboxCreate, err, "Container runtime unavailable")
	}

	startCmd := opts.StartCmd
	if startCmd == "" {
		startCmd = opts.Runtime.DefaultStart
	}

	cpuQuota, err := cpuQuotaFor(opts.CPULimit)
	if err != nil {
		return "", models.WrapError(models.KindSandboxCreate, err, "Invalid CPU limit %q", opts.CPULimit)
	}

	memLimit, err := units.RAMInBytes(opts.RAMLimit)
	if err != nil {
		return "", models.WrapError(models.KindSandboxCreate, err, "Invalid memory limit %q", opts.RAMLimit)
	}

	if err := d.ensureImage(ctx, cli, opts.Runtime.Image); err != nil {
		return "", models.WrapError(models.KindSandboxCreate, err, "Failed to pull image %s", opts.Runtime.Image)
	}

	containerConfig := &container.Config{
		Image:      opts.Runtime.Image,
		WorkingDir: opts.Runtime.WorkingDir,
		Cmd:        []string{"sh", "-c", fmt.Sprintf("%s 2>&1 || true && %s", opts.Runtime.BuildCmd, startCmd)},
		Labels: map[string]string{
			"bot_id":     strconv.FormatInt(opts.BotID, 10),
			"managed_by": "bothive",
		},
	}

	hostConfig := &container.HostConfig{
		Mounts: []mount.Mount{
			{
				Type:     mount.TypeBind,
				Source:   opts.SourcePath,
				Target:   opts.Runtime.WorkingDir,
				ReadOnly: true,
			},
		},
		// Hard security floor; callers cannot opt out.
		Privileged:  false,
		CapDrop:     []string{"ALL"},
		SecurityOpt: []string{"no-new-privileges"},
		NetworkMode: "bridge",
		Resources: container.Resources{
			Memory:    memLimit,
			CPUQuota:  cpuQuota,
			CPUPeriod: cpuPeriod,
		},
		AutoRemove: false,
	}

	name := fmt.Sprintf("bot-%d", opts.BotID)
	resp, err := cli.ContainerCreate(ctx, containerConfig, hostConfig, nil, nil, name)
	if err != nil {
		return "", models.WrapError(models.KindSandboxCreate, err, "Failed to create container: %v", err)
	}

	logging.Info("Created container %s for bot %d", resp.ID, opts.BotID)
	return resp.ID, nil
}

func (d *DockerDriver) Start(ctx context.Context, handle string) error {
	cli, err := d.client()
	if err != nil {
		return err
	}
	if err := cli.ContainerStart(ctx, handle, container.StartOptions{}); err != nil {
		if client.IsErrNotFound(err) {
			return models.WrapError(models.KindSandboxMissing, err, "Container not found")
		}
		return models.WrapError(models.KindSandboxOp, err, "Failed to start container: %v", err)
	}
	logging.Info("Started container %s", handle)
	return nil
}

func (d *DockerDriver) Stop(ctx context.Context, handle string, timeout time.Duration) error {
	cli, err := d.client()
	if err != nil {
		return err
	}
	if timeout <= 0 {
		timeout = DefaultStopTimeout
	}
	seconds := int(timeout.Seconds())
	if err := cli.ContainerStop(ctx, handle, container.StopOptions{Timeout: &seconds}); err != nil {
		if client.IsErrNotFound(err) {
			return models.WrapError(models.KindSandboxMissing, err, "Container not found")
		}
		return models.WrapError(models.KindSandboxOp, err, "Failed to stop container: %v", err)
	}
	logging.Info("Stopped container %s", handle)
	return nil
}

func (d *DockerDriver) Restart(ctx context.Context, handle string, timeout time.Duration) error {
	cli, err := d.client()
	if err != nil {
		return err
	}
	if timeout <= 0 {
		timeout = DefaultStopTimeout
	}
	seconds := int(timeout.Seconds())
	if err := cli.ContainerRestart(ctx, handle, container.StopOptions{Timeout: &seconds}); err != nil {
		if client.IsErrNotFound(err) {
			return models.WrapError(models.KindSandboxMissing, err, "Container not found")
		}
		return models.WrapError(models.KindSandboxOp, err, "Failed to restart container: %v", err)
	}
	logging.Info("Restarted container %s", handle)
	return nil
}

func (d *DockerDriver) Remove(ctx context.Context, handle string, force bool) error {
	cli, err := d.client()
	if err != nil {
		return err
	}
	if err := cli.ContainerRemove(ctx, handle, container.RemoveOptions{Force: force}); err != nil {
		if client.IsErrNotFound(err) {
			// Already gone counts as removed.
			logging.Warn("Container %s not found (already removed?)", handle)
			return nil
		}
		return models.WrapError(models.KindSandboxOp, err, "Failed to remove container: %v", err)
	}
	logging.Info("Removed container %s", handle)
	return nil
}

func (d *DockerDriver) Status(ctx context.Context, handle string) (models.BotStatus, error) {
	cli, err := d.client()
	if err != nil {
		return models.BotStopped, err
	}
	inspect, err := cli.ContainerInspect(ctx, handle)
	if err != nil {
		if client.IsErrNotFound(err) {
			return models.BotStopped, nil
		}
		return models.BotStopped, models.WrapError(models.KindSandboxOp, err, "Failed to inspect container: %v", err)
	}

	exitCode := 0
	state := ""
	if inspect.State != nil {
		exitCode = inspect.State.ExitCode
		state = inspect.State.Status
	}
	return MapContainerState(state, exitCode), nil
}

// MapContainerState translates the runtime's container state into the
// user-visible bot status.
func MapContainerState(state string, exitCode int) models.BotStatus {
	switch state {
	case "running":
		return models.BotRunning
	case "created":
		return models.BotCreated
	case "exited", "dead":
		if exitCode != 0 {
			return models.BotCrashed
		}
		return models.BotStopped
	default:
		return models.BotStopped
	}
}

// cpuQuotaFor converts a decimal core fraction into microseconds per period.
func cpuQuotaFor(cpuLimit string) (int64, error) {
	share, err := strconv.ParseFloat(cpuLimit, 64)
	if err != nil {
		return 0, err
	}
	if share <= 0 {
		return 0, fmt.Errorf("cpu share must be positive, got %v", share)
	}
	return int64(math.Round(share * cpuPeriod)), nil
}

func (d *DockerDriver) ensureImage(ctx context.Context, cli *client.Client, imageName string) error {
	_, _, err := cli.ImageInspectWithRaw(ctx, imageName)
	if err == nil {
		return nil
	}

	logging.Info("Pulling image %s", imageName)
	reader, err := cli.ImagePull(ctx, imageName, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pull image %s: %w", imageName, err)
	}
	defer reader.Close()

	decoder := json.NewDecoder(reader)
	for {
		var msg map[string]interface{}
		if err := decoder.Decode(&msg); err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("read pull response: %w", err)
		}
		if errMsg, ok := msg["error"].(string); ok {
			return fmt.Errorf("pull image: %s", errMsg)
		}
	}

	return nil
}
