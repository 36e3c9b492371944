// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Command rank-cluster launches one simkernel Docker container per rank,
// all attached to a private bridge network, passing each its rank and the
// rank count in the RANK and RANK_SIZE environment variables and mounting
// its rankN.yaml as the kernel configuration. simkernel reads only that
// file and runs single-rank configurations only; no rank dials another.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/google/uuid"
)

// containerStopTimeout bounds how long a rank container is given to shut
// down cleanly on teardown before it is killed, mirrored from the
// teacher's merge-queue Docker manager.
const containerStopTimeout = 10 * time.Second

func main() {
	image := flag.String("image", "quiltkernel:latest", "image to run for each rank")
	size := flag.Int("size", 2, "number of ranks to launch")
	configDir := flag.String("config-dir", "./ranks", "host directory holding per-rank kernel.yaml files, named rank0.yaml, rank1.yaml, ...")
	teardown := flag.Bool("teardown", false, "stop and remove a previously launched cluster instead of starting one")
	runLabel := flag.String("run", "", "run label to tear down (required with -teardown)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		logger.Error("failed to create Docker client", "error", err)
		os.Exit(1)
	}
	defer cli.Close()

	ctx := context.Background()

	if *teardown {
		if *runLabel == "" {
			logger.Error("-run is required with -teardown")
			os.Exit(1)
		}
		if err := teardownCluster(ctx, cli, *runLabel, logger); err != nil {
			logger.Error("teardown failed", "error", err)
			os.Exit(1)
		}
		return
	}

	runLabelValue := uuid.NewString()[:8]
	netName := "simkernel-" + runLabelValue
	if err := createNetwork(ctx, cli, netName); err != nil {
		logger.Error("failed to create cluster network", "error", err)
		os.Exit(1)
	}

	ids := make([]string, 0, *size)
	for rank := 0; rank < *size; rank++ {
		id, err := launchRank(ctx, cli, *image, netName, runLabelValue, rank, *size, *configDir)
		if err != nil {
			logger.Error("failed to launch rank", "rank", rank, "error", err)
			os.Exit(1)
		}
		ids = append(ids, id)
		logger.Info("rank container started", "rank", rank, "container_id", id[:12])
	}

	fmt.Printf("run=%s network=%s ranks=%d\n", runLabelValue, netName, *size)
	for rank, id := range ids {
		fmt.Printf("rank %d -> container %s\n", rank, id[:12])
	}
	fmt.Printf("tear down with: rank-cluster -teardown -run %s\n", runLabelValue)
}

func createNetwork(ctx context.Context, cli *client.Client, name string) error {
	_, err := cli.NetworkCreate(ctx, name, network.CreateOptions{Driver: "bridge"})
	return err
}

func launchRank(ctx context.Context, cli *client.Client, image, netName, runLabel string, rank, size int, configDir string) (string, error) {
	name := fmt.Sprintf("simkernel-%s-rank%d", runLabel, rank)
	hostConfigPath := fmt.Sprintf("%s/rank%d.yaml", configDir, rank)

	resp, err := cli.ContainerCreate(ctx,
		&container.Config{
			Image: image,
			Cmd:   []string{"/simkernel", "-config", "/etc/simkernel/kernel.yaml"},
			Env: []string{
				fmt.Sprintf("RANK=%d", rank),
				fmt.Sprintf("RANK_SIZE=%d", size),
			},
			Labels: map[string]string{"simkernel.run": runLabel, "simkernel.rank": fmt.Sprintf("%d", rank)},
		},
		&container.HostConfig{
			Binds:       []string{hostConfigPath + ":/etc/simkernel/kernel.yaml:ro"},
			NetworkMode: container.NetworkMode(netName),
		},
		nil, nil, name,
	)
	if err != nil {
		return "", fmt.Errorf("rank-cluster: creating container for rank %d: %w", rank, err)
	}

	if err := cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return "", fmt.Errorf("rank-cluster: starting container for rank %d: %w", rank, err)
	}
	return resp.ID, nil
}

func teardownCluster(ctx context.Context, cli *client.Client, runLabel string, logger *slog.Logger) error {
	containers, err := cli.ContainerList(ctx, container.ListOptions{All: true})
	if err != nil {
		return fmt.Errorf("rank-cluster: listing containers: %w", err)
	}

	timeout := int(containerStopTimeout.Seconds())
	for _, c := range containers {
		if c.Labels["simkernel.run"] != runLabel {
			continue
		}
		if err := cli.ContainerStop(ctx, c.ID, container.StopOptions{Timeout: &timeout}); err != nil {
			logger.Warn("container stop failed, removing anyway", "container_id", c.ID[:12], "error", err)
		}
		if err := cli.ContainerRemove(ctx, c.ID, container.RemoveOptions{Force: true, RemoveVolumes: true}); err != nil {
			return fmt.Errorf("rank-cluster: removing container %s: %w", c.ID[:12], err)
		}
		logger.Info("container removed", "container_id", c.ID[:12])
	}

	netName := "simkernel-" + runLabel
	if err := cli.NetworkRemove(ctx, netName); err != nil {
		logger.Warn("network removal failed", "network", netName, "error", err)
	}
	return nil
}
