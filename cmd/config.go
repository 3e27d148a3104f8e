package cmd

import (
	"fmt"
	"strconv"
	"strings"

	cfgpkg "github.com/KaramelBytes/geoportal/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set Geoportal configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := requireConfig()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "listen_addr: %s\n", cfg.ListenAddr)
		fmt.Fprintf(out, "database_url: %s\n", maskDSN(cfg.DatabaseURL))
		fmt.Fprintf(out, "cookie_secure: %t\n", cfg.CookieSecure)
		fmt.Fprintf(out, "session_backend: %s\n", cfg.SessionBackend)
		if cfg.SessionDSN != "" {
			fmt.Fprintf(out, "session_dsn: %s\n", cfg.SessionDSN)
		}
		fmt.Fprintf(out, "upload_dir: %s\n", cfg.UploadDir)
		fmt.Fprintf(out, "max_upload_mb: %d\n", cfg.MaxUploadMB)
		fmt.Fprintf(out, "geoserver_url: %s\n", cfg.GeoServerURL)
		fmt.Fprintf(out, "geoserver_workspace: %s\n", cfg.GeoServerWorkspace)
		fmt.Fprintf(out, "geoserver_user: %s\n", cfg.GeoServerUser)
		fmt.Fprintf(out, "geoserver_password: %s\n", mask(cfg.GeoServerPassword))
		fmt.Fprintf(out, "wfs_max_features: %d\n", cfg.WFSMaxFeatures)
		fmt.Fprintf(out, "ollama_host: %s\n", cfg.OllamaHost)
		fmt.Fprintf(out, "ollama_model: %s\n", cfg.OllamaModel)
		fmt.Fprintf(out, "http_timeout_sec: %d\n", cfg.HTTPTimeoutSec)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		c, err := requireConfig()
		if err != nil {
			return err
		}
		if err := applySetting(c, key, val); err != nil {
			return err
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func applySetting(c *cfgpkg.Global, key, val string) error {
	positive := func() (int, error) {
		i, err := strconv.Atoi(val)
		if err != nil || i <= 0 {
			return 0, fmt.Errorf("invalid positive int for %s: %v", key, val)
		}
		return i, nil
	}
	switch key {
	case "listen_addr":
		c.ListenAddr = val
	case "database_url":
		c.DatabaseURL = val
	case "cookie_secure":
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid bool for cookie_secure: %w", err)
		}
		c.CookieSecure = b
	case "session_backend":
		switch strings.ToLower(val) {
		case "memory", "sqlite":
			c.SessionBackend = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid session_backend: %s (use memory or sqlite)", val)
		}
	case "session_dsn":
		c.SessionDSN = val
	case "upload_dir":
		c.UploadDir = val
	case "max_upload_mb":
		i, err := positive()
		if err != nil {
			return err
		}
		c.MaxUploadMB = i
	case "geoserver_url":
		c.GeoServerURL = val
	case "geoserver_workspace":
		c.GeoServerWorkspace = val
	case "geoserver_user":
		c.GeoServerUser = val
	case "geoserver_password":
		c.GeoServerPassword = val
	case "wfs_max_features":
		i, err := positive()
		if err != nil {
			return err
		}
		c.WFSMaxFeatures = i
	case "ollama_host":
		c.OllamaHost = val
	case "ollama_model":
		c.OllamaModel = val
	case "http_timeout_sec":
		i, err := positive()
		if err != nil {
			return err
		}
		c.HTTPTimeoutSec = i
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}

// maskDSN hides the password of a postgres URL.
func maskDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 {
		return dsn
	}
	creds := dsn[scheme+3 : at]
	user, _, ok := strings.Cut(creds, ":")
	if !ok {
		return dsn
	}
	return dsn[:scheme+3] + user + ":******" + dsn[at:]
}
