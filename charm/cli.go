// ABOUTME: CLI commands for Charm KV sync operations
// ABOUTME: Shows sync status, forces a sync and toggles auto-sync for the deal store

package charm

import (
	"flag"
	"fmt"
	"io"
)

// SyncStatusCommand shows current sync configuration and what is stored.
func SyncStatusCommand(out io.Writer, c *Client, args []string) error {
	fs := flag.NewFlagSet("sync status", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	fmt.Fprintln(out, "Charm Sync Status")
	fmt.Fprintln(out, "─────────────────")
	fmt.Fprintf(out, "Server:    %s\n", c.Host())
	fmt.Fprintf(out, "Auto-sync: %v\n", c.AutoSync())

	if id, err := c.ID(); err != nil {
		fmt.Fprintln(out, "Status:    Not connected")
	} else {
		fmt.Fprintln(out, "Status:    Connected to Charm Cloud")
		fmt.Fprintf(out, "ID:        %s\n", id)
	}

	for _, prefix := range []string{dealPrefix, taskPrefix, activityPrefix, sessionPrefix} {
		keys, err := c.KeysWithPrefix([]byte(prefix))
		if err != nil {
			return fmt.Errorf("failed to count %s keys: %w", prefix, err)
		}
		fmt.Fprintf(out, "%-10s %d\n", prefix, len(keys))
	}

	return nil
}

// SyncNowCommand performs an immediate sync.
func SyncNowCommand(out io.Writer, c *Client, args []string) error {
	fs := flag.NewFlagSet("sync now", flag.ContinueOnError)
	verbose := fs.Bool("verbose", false, "Show verbose output")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *verbose {
		fmt.Fprintf(out, "Syncing with %s...\n", c.Host())
	}

	if err := c.Sync(); err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	fmt.Fprintln(out, "✓ Synced")
	return nil
}

// SetAutoSyncCommand enables or disables auto-sync.
func SetAutoSyncCommand(out io.Writer, c *Client, args []string) error {
	fs := flag.NewFlagSet("sync auto", flag.ContinueOnError)
	enable := fs.Bool("enable", false, "Enable auto-sync")
	disable := fs.Bool("disable", false, "Disable auto-sync")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *enable == *disable {
		fmt.Fprintln(out, "Usage: dealpulse sync auto --enable|--disable")
		return nil
	}

	if err := c.SetAutoSync(*enable); err != nil {
		return fmt.Errorf("failed to save auto-sync setting: %w", err)
	}

	if *enable {
		fmt.Fprintln(out, "✓ Auto-sync enabled")
	} else {
		fmt.Fprintln(out, "✓ Auto-sync disabled")
	}
	return nil
}
