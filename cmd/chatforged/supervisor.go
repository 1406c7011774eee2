package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kallsen-dev/chatforge/internal/logging"
	"github.com/kallsen-dev/chatforge/internal/routerconfig"
	"github.com/kallsen-dev/chatforge/internal/supervisor"
	"github.com/kallsen-dev/chatforge/internal/svctopology"
)

func supervisorCmd() *cobra.Command {
	var configPath, topologyPath, busDir, stateDir string
	var allowDuplicateInbox, noWorkers, noServers bool

	cmd := &cobra.Command{
		Use:   "supervisor",
		Short: "launch and monitor every chatforge component process",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if _, err := logging.Init("supervisor", cfg.Logging); err != nil {
				return err
			}
			topo, err := svctopology.Load(topologyPath)
			if err != nil {
				return err
			}
			paths := busStatePaths{busDir: busDir, stateDir: stateDir}
			layout := busLayoutFor(cfg, paths)

			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			sup := supervisor.New(topo, layout, wd, supervisor.Options{
				AllowDuplicateInbox: allowDuplicateInbox,
				NoWorkers:           noWorkers,
				NoServers:           noServers,
				StatusPath:          paths.supervisorStatus(),
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return sup.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "config.json", "router configuration file")
	cmd.Flags().StringVar(&topologyPath, "topology", "topology.yaml", "supervisor process-topology file")
	cmd.Flags().StringVar(&busDir, "bus-dir", "ChatManager/bus", "bus directory")
	cmd.Flags().StringVar(&stateDir, "state-dir", "ChatManager/state", "state directory")
	cmd.Flags().BoolVar(&allowDuplicateInbox, "allow-duplicate-inbox", false, "allow >1 instance of a non-ha worker")
	cmd.Flags().BoolVar(&noWorkers, "no-workers", false, "skip launching worker instances")
	cmd.Flags().BoolVar(&noServers, "no-servers", false, "skip launching microservice instances")
	return cmd
}

func busLayoutFor(cfg *routerconfig.Config, paths busStatePaths) supervisor.BusLayout {
	layout := supervisor.BusLayout{
		EventsInbox:       paths.eventsInbox(),
		RepliesOutbox:     paths.repliesOutbox(),
		OverlayOutbox:     paths.overlayOutbox(),
		OverlayChatFile:   cfg.OverlayFallback.ChatFile,
		OverlayEventsFile: cfg.OverlayFallback.OverlayEventsFile,
	}
	for _, b := range cfg.Bots {
		if !b.Enabled {
			continue
		}
		layout.Bots = append(layout.Bots, supervisor.BotPaths{ID: b.ID, Inbox: b.Inbox, Outbox: b.Outbox, Ack: b.Ack})
	}
	return layout
}
