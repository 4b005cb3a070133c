// standbyctl is an operator CLI for driving a Controller instance from a
// shell: report usage events, inspect or force buckets, and run an HTTP
// metrics server, following the teacher pack's cobra-subcommand shape
// (dmitriimaksimovdevelop-melisai's cmd/melisai/main.go: one rootCmd,
// per-subcommand flag sets, RunE closures).
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	engine "github.com/99souls/appstandby"
	"github.com/99souls/appstandby/adapters/hostinjector"
	"github.com/99souls/appstandby/config"
	"github.com/99souls/appstandby/models"
)

var (
	version = "0.1.0"

	flagDataDir      string
	flagSettingsPath string
	flagMetrics      bool
	flagBackend      string
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "standbyctl",
		Short:   "Operate an App Standby classification engine from the command line",
		Version: version,
		Long: `standbyctl drives a Controller instance backed by the local host
(via gopsutil-derived clocks) rather than a real mobile platform. It exists
to exercise the engine end-to-end from a shell: report usage events, read
back assigned buckets, force overrides, trigger a scan, or serve metrics.`,
	}
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "host data directory (get_data_system_directory)")
	rootCmd.PersistentFlags().StringVar(&flagSettingsPath, "settings-file", "", "path to a watched app-idle thresholds file")
	rootCmd.PersistentFlags().BoolVar(&flagMetrics, "metrics", true, "enable metrics collection")
	rootCmd.PersistentFlags().StringVar(&flagBackend, "metrics-backend", "prometheus", "metrics backend: prometheus, otel, noop")

	var (
		reUser int
		reKind string
		rePkg  string
	)
	reportEventCmd := &cobra.Command{
		Use:   "report-event <package>",
		Short: "Submit a usage event for a package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseEventKind(reKind)
			if err != nil {
				return err
			}
			ctrl, err := buildController()
			if err != nil {
				return err
			}
			defer ctrl.Stop()
			key := models.AppKey{User: reUser, Package: args[0]}
			ctrl.ReportEvent(kind, key, elapsedNow(ctrl))
			fmt.Printf("reported %s for %s\n", kind, key)
			return nil
		},
	}
	reportEventCmd.Flags().IntVar(&reUser, "user", 0, "user id")
	reportEventCmd.Flags().StringVar(&reKind, "kind", "USER_INTERACTION", "event kind: USER_INTERACTION, NOTIFICATION_SEEN, SYSTEM_INTERACTION, SLICE_PINNED")

	var getUser int
	getBucketCmd := &cobra.Command{
		Use:   "get-bucket <package>",
		Short: "Print the currently assigned bucket for a package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := buildController()
			if err != nil {
				return err
			}
			defer ctrl.Stop()
			key := models.AppKey{User: getUser, Package: args[0]}
			b := ctrl.GetAppStandbyBucket(key, elapsedNow(ctrl), false)
			fmt.Println(b)
			return nil
		},
	}
	getBucketCmd.Flags().IntVar(&getUser, "user", 0, "user id")

	var (
		setUser   int
		setReason string
		setSubtag string
	)
	setBucketCmd := &cobra.Command{
		Use:   "set-bucket <package> <bucket>",
		Short: "Request a bucket for a package with a given reason (subject to reason precedence)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bucket, err := parseBucket(args[1])
			if err != nil {
				return err
			}
			reason, err := parseReason(setReason)
			if err != nil {
				return err
			}
			ctrl, err := buildController()
			if err != nil {
				return err
			}
			defer ctrl.Stop()
			key := models.AppKey{User: setUser, Package: args[0]}
			tag := models.ReasonTag{Reason: reason, Subtag: setSubtag}
			if err := ctrl.SetAppStandbyBucket(key, bucket, tag, elapsedNow(ctrl)); err != nil {
				return err
			}
			fmt.Printf("requested %s for %s (%s)\n", bucket, key, tag)
			return nil
		},
	}
	setBucketCmd.Flags().IntVar(&setUser, "user", 0, "user id")
	setBucketCmd.Flags().StringVar(&setReason, "reason", "FORCED", "reason: DEFAULT, USAGE, TIMEOUT, PREDICTED, FORCED")
	setBucketCmd.Flags().StringVar(&setSubtag, "subtag", "", "opaque diagnostic subtag, e.g. CTS")

	var (
		forceUser int
		forceOff  bool
	)
	forceIdleCmd := &cobra.Command{
		Use:   "force-idle <package>",
		Short: "Force or clear the idle state of a package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := buildController()
			if err != nil {
				return err
			}
			defer ctrl.Stop()
			key := models.AppKey{User: forceUser, Package: args[0]}
			ctrl.ForceIdleState(key, !forceOff, elapsedNow(ctrl))
			fmt.Printf("force-idle=%v for %s\n", !forceOff, key)
			return nil
		},
	}
	forceIdleCmd.Flags().IntVar(&forceUser, "user", 0, "user id")
	forceIdleCmd.Flags().BoolVar(&forceOff, "clear", false, "clear the forced-idle flag instead of setting it")

	var scanUser int
	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Trigger an idle scanner tick for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := buildController()
			if err != nil {
				return err
			}
			defer ctrl.Stop()
			ctrl.CheckIdleStates(scanUser)
			fmt.Printf("scan requested for user %d\n", scanUser)
			return nil
		},
	}
	scanCmd.Flags().IntVar(&scanUser, "user", 0, "user id")

	var serveAddr string
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a long-lived Controller and expose its metrics endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := buildController()
			if err != nil {
				return err
			}
			if err := ctrl.Start(); err != nil {
				return fmt.Errorf("start controller: %w", err)
			}
			defer ctrl.Stop()

			mux := http.NewServeMux()
			if h := ctrl.MetricsHandler(); h != nil {
				mux.Handle("/metrics", h)
			}
			mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
				snap := ctrl.HealthSnapshot(context.Background())
				fmt.Fprintf(w, "%+v\n", snap)
			})
			fmt.Printf("serving on %s\n", serveAddr)
			return http.ListenAndServe(serveAddr, mux)
		},
	}
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":9090", "listen address")

	rootCmd.AddCommand(reportEventCmd, getBucketCmd, setBucketCmd, forceIdleCmd, scanCmd, serveCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func buildController() (*engine.Controller, error) {
	cfg := config.Defaults()
	cfg.DataDir = flagDataDir
	cfg.SettingsPath = flagSettingsPath
	cfg.MetricsEnabled = flagMetrics
	cfg.MetricsBackend = flagBackend

	inj := hostinjector.New(flagDataDir)
	return engine.New(cfg, inj)
}

func elapsedNow(ctrl *engine.Controller) uint64 {
	return uint64(ctrl.Snapshot().Uptime.Milliseconds())
}

func parseBucket(s string) (models.Bucket, error) {
	switch strings.ToUpper(s) {
	case "ACTIVE":
		return models.BucketActive, nil
	case "WORKING_SET":
		return models.BucketWorkingSet, nil
	case "FREQUENT":
		return models.BucketFrequent, nil
	case "RARE":
		return models.BucketRare, nil
	case "NEVER":
		return models.BucketNever, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		b := models.Bucket(n)
		if b.Valid() {
			return b, nil
		}
	}
	return 0, fmt.Errorf("unknown bucket %q", s)
}

func parseReason(s string) (models.Reason, error) {
	switch strings.ToUpper(s) {
	case "DEFAULT":
		return models.ReasonDefault, nil
	case "USAGE":
		return models.ReasonUsage, nil
	case "TIMEOUT":
		return models.ReasonTimeout, nil
	case "PREDICTED":
		return models.ReasonPredicted, nil
	case "FORCED":
		return models.ReasonForced, nil
	}
	return 0, fmt.Errorf("unknown reason %q", s)
}

func parseEventKind(s string) (models.EventKind, error) {
	switch strings.ToUpper(s) {
	case "USER_INTERACTION":
		return models.EventUserInteraction, nil
	case "NOTIFICATION_SEEN":
		return models.EventNotificationSeen, nil
	case "SYSTEM_INTERACTION":
		return models.EventSystemInteraction, nil
	case "SLICE_PINNED":
		return models.EventSlicePinned, nil
	case "OTHER":
		return models.EventOther, nil
	}
	return 0, fmt.Errorf("unknown event kind %q", s)
}
