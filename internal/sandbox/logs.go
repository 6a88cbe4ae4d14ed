package sandbox

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"bothive/pkg/models"
)

// DefaultTailLines bounds how much history TailLogs returns when the caller
// does not say.
const DefaultTailLines = 100

// TailLogs returns the last n lines of container output as one blob.
// Invalid UTF-8 is replaced, never dropped.
func (d *DockerDriver) TailLogs(ctx context.Context, handle string, tail int) (string, error) {
	cli, err := d.client()
	if err != nil {
		return "", err
	}
	if tail <= 0 {
		tail = DefaultTailLines
	}

	rc, err := cli.ContainerLogs(ctx, handle, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Tail:       strconv.Itoa(tail),
	})
	if err != nil {
		if client.IsErrNotFound(err) {
			return "", models.WrapError(models.KindSandboxMissing, err, "Container not found")
		}
		return "", models.WrapError(models.KindSandboxOp, err, "Failed to get container logs: %v", err)
	}
	defer rc.Close()

	// Containers run without a TTY, so stdout and stderr arrive multiplexed.
	var buf bytes.Buffer
	if _, err := stdcopy.StdCopy(&buf, &buf, rc); err != nil {
		return "", models.WrapError(models.KindSandboxOp, err, "Failed to read container logs: %v", err)
	}

	return strings.ToValidUTF8(buf.String(), string(utf8.RuneError)), nil
}

// FollowLogs streams container output line by line until the container exits
// or ctx is cancelled. The lines channel is closed when the stream ends; if
// the stream died rather than finished, the terminal error is available on
// the second channel once lines is closed.
func (d *DockerDriver) FollowLogs(ctx context.Context, handle string) (<-chan string, <-chan error, error) {
	cli, err := d.client()
	if err != nil {
		return nil, nil, err
	}

	rc, err := cli.ContainerLogs(ctx, handle, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     true,
	})
	if err != nil {
		if client.IsErrNotFound(err) {
			return nil, nil, models.WrapError(models.KindSandboxMissing, err, "Container not found")
		}
		return nil, nil, models.WrapError(models.KindSandboxOp, err, "Failed to follow container logs: %v", err)
	}

	pr, pw := io.Pipe()
	go func() {
		_, err := stdcopy.StdCopy(pw, pw, rc)
		pw.CloseWithError(err)
	}()

	lines := make(chan string, 64)
	errc := make(chan error, 1)
	go func() {
		defer close(lines)
		defer rc.Close()

		scanner := bufio.NewScanner(pr)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := strings.ToValidUTF8(scanner.Text(), string(utf8.RuneError)) + "\n"
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		// A transport failure or an oversized line surfaces here; a clean
		// container exit leaves Err nil.
		if err := scanner.Err(); err != nil {
			errc <- models.WrapError(models.KindSandboxOp, err, "Log stream interrupted")
		}
	}()

	return lines, errc, nil
}
