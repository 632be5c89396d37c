package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/voxterm/voxctl/pkg/voxctl/auth"
	"github.com/voxterm/voxctl/pkg/voxctl/config"
)

// NewDoctorCommand reports where each credential source stands without
// printing any secret material.
func NewDoctorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose credential sources",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			w := rt.Writer()
			_, _ = fmt.Fprintf(w, "Config root: %s\n", config.ConfigDir())
			_, _ = fmt.Fprintf(w, "Secure store service: %s\n\n", config.KeychainService())

			for _, env := range []string{
				auth.EnvBearerToken,
				auth.EnvOAuthToken,
				auth.EnvOAuthFD,
				auth.EnvAPIKey,
				auth.EnvAPIKeyFD,
			} {
				state := "unset"
				if os.Getenv(env) != "" {
					state = "set"
				}
				_, _ = fmt.Fprintf(w, "%-44s %s\n", env, state)
			}

			store := auth.NewPlatformStore(auth.StoreConfig{
				CredentialsPath: config.CredentialsPath(),
				Service:         config.KeychainService(),
				Account:         config.KeychainAccount(),
			}, rt.logger)
			raw, err := store.ReadRaw()
			if err != nil {
				_, _ = fmt.Fprintf(w, "%-44s absent\n", "credential store")
				return nil
			}
			cred, err := auth.ParseCredentials(raw)
			if err != nil {
				_, _ = fmt.Fprintf(w, "%-44s present but unreadable\n", "credential store")
				return nil
			}
			state := "usable"
			switch {
			case !cred.IsSubscription():
				state = "present, missing inference scope"
			case !cred.UsableAt(time.Now()):
				state = "expired, refresh required"
			}
			_, _ = fmt.Fprintf(w, "%-44s %s\n", "credential store", state)
			return nil
		},
	}
}
