package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/voxterm/voxctl/pkg/voxctl/auth"
	"github.com/voxterm/voxctl/pkg/voxctl/config"
	"github.com/voxterm/voxctl/pkg/voxctl/output"
)

func NewAuthCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Inspect Claude credentials",
	}
	cmd.AddCommand(
		newAuthStatusCommand(),
		newAuthTokenCommand(),
		newAuthWhoamiCommand(),
		newAuthLogoutCommand(),
	)
	return cmd
}

// authStatus is the structured form of `auth status` output. Token
// material never appears here, only its shape.
type authStatus struct {
	Authenticated    bool   `json:"authenticated" yaml:"authenticated"`
	Method           string `json:"method,omitempty" yaml:"method,omitempty"`
	Source           string `json:"source,omitempty" yaml:"source,omitempty"`
	SubscriptionType string `json:"subscriptionType,omitempty" yaml:"subscriptionType,omitempty"`
	RateLimitTier    string `json:"rateLimitTier,omitempty" yaml:"rateLimitTier,omitempty"`
	ExpiresAt        string `json:"expiresAt,omitempty" yaml:"expiresAt,omitempty"`
}

func newAuthStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show credential resolution status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			status := authStatus{}
			resolved, err := rt.newResolver().Resolve(cmd.Context())
			switch {
			case err == nil:
				status.Authenticated = true
				status.Method = string(resolved.Method)
				status.Source = resolved.Source
				if cred := resolved.Credential; cred != nil {
					status.SubscriptionType = cred.SubscriptionType
					status.RateLimitTier = cred.RateLimitTier
					if cred.ExpiresAt != 0 {
						status.ExpiresAt = time.UnixMilli(cred.ExpiresAt).UTC().Format(time.RFC3339)
					}
				}
			case errors.Is(err, auth.ErrNoCredential):
				// Not authenticated is a status, not a failure.
			default:
				return err
			}

			format := output.Format(rt.outputFormat)
			if format != output.FormatText && format != "" {
				return output.WriteObject(rt.Writer(), format, status)
			}
			if !status.Authenticated {
				_, _ = fmt.Fprintln(rt.Writer(), "Not authenticated. Run 'claude' to authenticate, or set ANTHROPIC_API_KEY.")
				return nil
			}
			_, _ = fmt.Fprintf(rt.Writer(), "Authenticated via %s (%s)\n", status.Source, status.Method)
			if status.SubscriptionType != "" {
				_, _ = fmt.Fprintf(rt.Writer(), "Subscription: %s\n", status.SubscriptionType)
			}
			if status.ExpiresAt != "" {
				_, _ = fmt.Fprintf(rt.Writer(), "Token expires at %s\n", status.ExpiresAt)
			}
			return nil
		},
	}
}

func newAuthTokenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Print the resolved bearer token or API key",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			resolved, err := rt.newResolver().Resolve(cmd.Context())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(rt.Writer(), resolved.Token())
			return nil
		},
	}
}

func newAuthWhoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the account and organization behind the credential",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			resolved, err := rt.newResolver().Resolve(cmd.Context())
			if err != nil {
				return err
			}
			if resolved.Method != auth.MethodOAuth {
				_, _ = fmt.Fprintln(rt.Writer(), "API key auth; no account profile available")
				return nil
			}
			fetcher := &auth.ProfileFetcher{}
			profile, err := fetcher.Fetch(cmd.Context(), resolved.AccessToken)
			if err != nil {
				return err
			}
			format := output.Format(rt.outputFormat)
			if format != output.FormatText && format != "" {
				return output.WriteObject(rt.Writer(), format, profile)
			}
			_, _ = fmt.Fprintf(rt.Writer(), "Account: %s (%s)\n", profile.Account.Email, profile.Account.UUID)
			_, _ = fmt.Fprintf(rt.Writer(), "Organization: %s (%s)\n", profile.Organization.Name, profile.Organization.UUID)
			if profile.Organization.RateLimitTier != "" {
				_, _ = fmt.Fprintf(rt.Writer(), "Rate limit tier: %s\n", profile.Organization.RateLimitTier)
			}
			return nil
		},
	}
}

func newAuthLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove stored credentials from the platform store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			store := auth.NewPlatformStore(auth.StoreConfig{
				CredentialsPath: config.CredentialsPath(),
				Service:         config.KeychainService(),
				Account:         config.KeychainAccount(),
			}, rt.logger)
			if err := store.Delete(); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(rt.Writer(), "Stored credentials removed")
			return nil
		},
	}
}
