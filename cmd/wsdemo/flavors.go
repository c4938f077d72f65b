package main

import (
	"bufio"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	"github.com/relaywire/wscore"
	"github.com/relaywire/wscore/auth"
	"github.com/relaywire/wscore/envutil"
)

var (
	flagBind       string
	flagPath       string
	flagMaxClients int
	flagRapidLimit time.Duration
	flagInterval   time.Duration
	flagPublicKey  string
	flagRequireExp bool
)

func init() {
	for _, cmd := range []*cobra.Command{periodicCmd, pubsubCmd, reactiveCmd} {
		cmd.Flags().StringVar(&flagBind, "bind", "0.0.0.0:8080", "host:port to listen on")
		cmd.Flags().StringVar(&flagPath, "path", "/ws/love", "websocket upgrade path")
		cmd.Flags().IntVar(&flagMaxClients, "max-clients", wscore.DefaultMaxClients, "admission cap")
		cmd.Flags().DurationVar(&flagRapidLimit, "rapid-limit", time.Second, "minimum spacing between client frames (0 disables)")
		cmd.Flags().StringVar(&flagPublicKey, "public-key", "", "path to a DER-encoded RSA public key enabling RS256 JWT auth")
		cmd.Flags().BoolVar(&flagRequireExp, "require-exp", false, "require and validate the exp claim")
	}
	periodicCmd.Flags().DurationVar(&flagInterval, "interval", time.Second, "broadcast interval")
}

// sharedConfig assembles the flavor-independent fields from flags and the
// environment.
func sharedConfig() (wscore.Config, error) {
	bind := flagBind
	if v, ok := envutil.String("WS_BINDING_URL"); ok {
		bind = v
	}
	path := flagPath
	if v, ok := envutil.String("WS_BINDING_PATH"); ok {
		path = v
	}
	maxClients := flagMaxClients
	if v, ok := envutil.Int("WS_MAX_CLIENTS"); ok {
		maxClients = int(v)
	}
	mode, err := loadAuth()
	if err != nil {
		return wscore.Config{}, err
	}
	return wscore.Config{
		BindingURL:        bind,
		BindingPath:       path,
		MaxClients:        maxClients,
		RapidRequestLimit: flagRapidLimit,
		Auth:              mode,
	}, nil
}

// loadAuth builds the JWT mode from the configured DER public key, or
// disables authentication when no key is given.
func loadAuth() (auth.Mode, error) {
	keyPath := flagPublicKey
	if keyPath == "" {
		if v, ok := envutil.String("WS_PUBLIC_KEY_DER"); ok {
			keyPath = v
		}
	}
	if keyPath == "" {
		return auth.None{}, nil
	}
	der, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, err
	}
	claims := auth.DisableAll()
	claims.Expiry = flagRequireExp
	return auth.NewJWT(auth.DefaultLocation(), der, jwt.SigningMethodRS256, claims)
}

var periodicCmd = &cobra.Command{
	Use:   "periodic",
	Short: "Broadcast a generated string to every client at a fixed interval",
	RunE: func(cmd *cobra.Command, args []string) error {
		shared, err := sharedConfig()
		if err != nil {
			return err
		}
		ctx, cancel := serviceContext()
		defer cancel()
		state := wscore.NewPeriodicState(wscore.PeriodicConfig{
			Config:           shared,
			PeriodicInterval: flagInterval,
			MessageGetter:    func() string { return "love" },
		})
		return wscore.RunPeriodic(ctx, state)
	},
}

var pubsubCmd = &cobra.Command{
	Use:   "pubsub",
	Short: "Fan stdin lines out to every connected client",
	RunE: func(cmd *cobra.Command, args []string) error {
		shared, err := sharedConfig()
		if err != nil {
			return err
		}
		ctx, cancel := serviceContext()
		defer cancel()
		state := wscore.NewPubsubState(wscore.PubsubConfig{Config: shared})

		handleCh := make(chan wscore.Broadcaster, 1)
		go func() {
			broadcast := <-handleCh
			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				broadcast(scanner.Text())
			}
		}()
		return wscore.RunPubsub(ctx, state, handleCh)
	},
}

var reactiveCmd = &cobra.Command{
	Use:   "reactive",
	Short: "Echo every client frame back, prefixed",
	RunE: func(cmd *cobra.Command, args []string) error {
		shared, err := sharedConfig()
		if err != nil {
			return err
		}
		ctx, cancel := serviceContext()
		defer cancel()
		state := wscore.NewReactiveState(wscore.ReactiveConfig{
			Config: shared,
			MessageHandler: func(message string) (string, bool) {
				if strings.HasPrefix(message, "quiet") {
					return "", false
				}
				return "echo: " + message, true
			},
		})
		return wscore.RunReactive(ctx, state)
	},
}
