package docker

import (
	"context"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"

	"github.com/shinji-kodama/envvibe/internal/model"
)

// PublishedPorts returns the host ports published by running containers.
//
// A container that publishes a port owns it on the host even while the
// process inside is not listening yet, so the loopback probe alone can
// miss it. Containers that are stopped are skipped: their mappings are
// released until they start again.
func PublishedPorts(ctx context.Context, cli *Client) (model.PortSet, error) {
	containers, err := cli.inner.ContainerList(ctx, container.ListOptions{
		Filters: filters.NewArgs(filters.Arg("status", "running")),
	})
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitDockerNotRunning,
			"failed to list Docker containers",
			err,
		)
	}
	return hostPorts(containers), nil
}

// hostPorts collects the non-zero public ports of the given containers.
// Ports bound on several interfaces (IPv4 and IPv6) are reported once.
func hostPorts(containers []container.Summary) model.PortSet {
	ports := make(model.PortSet)
	for _, c := range containers {
		for _, p := range c.Ports {
			if p.PublicPort != 0 {
				ports.Add(p.PublicPort)
			}
		}
	}
	return ports
}
