package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/orienta/orienta/internal/models"
	"github.com/orienta/orienta/internal/validation"
)

func (c *cli) catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Browse and edit careers and universities",
	}

	careers := &cobra.Command{
		Use:   "careers",
		Short: "List careers",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.ctx(cmd)
			defer cancel()
			list, err := c.portal.Careers(ctx)
			if err != nil {
				return err
			}
			return c.print(cmd, list, func(w io.Writer) {
				tw := tab(w)
				fmt.Fprintln(tw, "ID\tCAREER\tDIMENSION\tUNIVERSITY")
				for _, cr := range list {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", cr.ID, cr.Name, cr.Dimension, cr.UniversityID)
				}
				_ = tw.Flush()
			})
		},
	}

	universities := &cobra.Command{
		Use:   "universities",
		Short: "List universities",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.ctx(cmd)
			defer cancel()
			list, err := c.portal.Universities(ctx)
			if err != nil {
				return err
			}
			return c.print(cmd, list, func(w io.Writer) {
				tw := tab(w)
				fmt.Fprintln(tw, "ID\tUNIVERSITY\tCITY\tLINK")
				for _, u := range list {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", u.ID, u.Name, u.City, u.Link)
				}
				_ = tw.Flush()
			})
		},
	}

	var career models.Career
	addCareer := &cobra.Command{
		Use:   "add-career",
		Short: "Create a career (admin or institution)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.ctx(cmd)
			defer cancel()
			created, err := c.portal.CreateCareer(ctx, career)
			if err != nil {
				return err
			}
			return c.print(cmd, created, func(w io.Writer) {
				fmt.Fprintf(w, "Career %s created with id %s.\n", created.Name, created.ID)
			})
		},
	}
	addCareer.Flags().StringVar(&career.Name, "name", "", "career name")
	addCareer.Flags().StringVar(&career.Dimension, "dimension", "", "aptitude dimension it belongs to")
	addCareer.Flags().StringVar(&career.UniversityID, "university", "", "university id")
	addCareer.Flags().StringVar(&career.Link, "link", "", "information link")

	deleteCareer := &cobra.Command{
		Use:   "delete-career ID",
		Short: "Delete a career (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.ctx(cmd)
			defer cancel()
			if err := c.portal.DeleteCareer(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Career %s deleted.\n", args[0])
			return nil
		},
	}

	var uni models.University
	addUniversity := &cobra.Command{
		Use:   "add-university",
		Short: "Create a university (admin or institution)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.ctx(cmd)
			defer cancel()
			created, err := c.portal.CreateUniversity(ctx, uni)
			if err != nil {
				return err
			}
			return c.print(cmd, created, func(w io.Writer) {
				fmt.Fprintf(w, "University %s created with id %s.\n", created.Name, created.ID)
			})
		},
	}
	addUniversity.Flags().StringVar(&uni.Name, "name", "", "university name")
	addUniversity.Flags().StringVar(&uni.City, "city", "", "city")
	addUniversity.Flags().StringVar(&uni.Link, "link", "", "website")

	cmd.AddCommand(careers, universities, addCareer, deleteCareer, addUniversity)
	return cmd
}

func printBackupConfig(w io.Writer, cfg *models.BackupConfig) {
	fmt.Fprintf(w, "frequency:  %s\nat:         %s\nretention:  %d backups\n", cfg.Frequency, cfg.ExecutionTime, cfg.RetentionCount)
}

func (c *cli) backupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Backup schedule and snapshots (admin)",
	}

	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Show the backup schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.ctx(cmd)
			defer cancel()
			cfg, err := c.portal.BackupConfig(ctx)
			if err != nil {
				return err
			}
			return c.print(cmd, cfg, func(w io.Writer) { printBackupConfig(w, cfg) })
		},
	}

	var (
		frequency string
		at        string
		retention int
	)
	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Change the backup schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.ctx(cmd)
			defer cancel()
			current, err := c.portal.BackupConfig(ctx)
			if err != nil {
				return err
			}
			next := *current
			if cmd.Flags().Changed("frequency") {
				next.Frequency = models.BackupFrequency(canonicalFrequency(frequency))
			}
			if cmd.Flags().Changed("at") {
				next.ExecutionTime = at
			}
			if cmd.Flags().Changed("retention") {
				next.RetentionCount = retention
			}
			// Catch typos before the round trip.
			if _, err := validation.BackupConfig(next); err != nil {
				return err
			}
			saved, err := c.portal.UpdateBackupConfig(ctx, next)
			if err != nil {
				return err
			}
			return c.print(cmd, saved, func(w io.Writer) {
				fmt.Fprintln(w, "Backup schedule saved.")
				printBackupConfig(w, saved)
			})
		},
	}
	setCmd.Flags().StringVar(&frequency, "frequency", "", "daily, weekly, monthly or yearly")
	setCmd.Flags().StringVar(&at, "at", "", "execution time, HH:MM or HH:MM:SS")
	setCmd.Flags().IntVar(&retention, "retention", 0, "how many backups to keep")

	files := &cobra.Command{
		Use:   "files",
		Short: "List snapshots, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.ctx(cmd)
			defer cancel()
			list, err := c.portal.BackupFiles(ctx)
			if err != nil {
				return err
			}
			return c.print(cmd, list, func(w io.Writer) {
				if len(list) == 0 {
					fmt.Fprintln(w, "No backups yet.")
					return
				}
				tw := tab(w)
				fmt.Fprintln(tw, "ID\tTAKEN\tSIZE")
				for _, f := range list {
					fmt.Fprintf(tw, "%s\t%s\t%d\n", f.ID, f.Timestamp.Local().Format("2006-01-02 15:04:05"), f.Size)
				}
				_ = tw.Flush()
			})
		},
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Take a backup now",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.ctx(cmd)
			defer cancel()
			f, err := c.portal.CreateBackup(ctx)
			if err != nil {
				return err
			}
			return c.print(cmd, f, func(w io.Writer) {
				fmt.Fprintf(w, "Backup %s written (%d bytes).\n", f.ID, f.Size)
			})
		},
	}

	var yes bool
	restore := &cobra.Command{
		Use:   "restore ID",
		Short: "Replace all data with a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("pass --yes to confirm; current data will be replaced")
			}
			ctx, cancel := c.ctx(cmd)
			defer cancel()
			if err := c.portal.RestoreBackup(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %s.\n", args[0])
			return nil
		},
	}
	restore.Flags().BoolVar(&yes, "yes", false, "confirm")

	cmd.AddCommand(cfgCmd, setCmd, files, create, restore)
	return cmd
}

// canonicalFrequency maps "weekly" to "Weekly" and leaves unknown input as is.
func canonicalFrequency(s string) string {
	for _, f := range models.Frequencies {
		if strings.EqualFold(string(f), strings.TrimSpace(s)) {
			return string(f)
		}
	}
	return s
}

func (c *cli) statsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Usage and reliability statistics (admin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.ctx(cmd)
			defer cancel()
			st, err := c.portal.StatsSummary(ctx)
			if err != nil {
				return err
			}
			return c.print(cmd, st, func(w io.Writer) {
				fmt.Fprintf(w, "users: %d  students: %d  submissions: %d\n\n", st.Users, st.Students, st.Submissions)
				tw := tab(w)
				fmt.Fprintln(tw, "DIMENSION\tAVERAGE\tALPHA\tN")
				alpha := map[string]models.Reliability{}
				for _, r := range st.Reliability {
					alpha[r.Dimension] = r
				}
				for _, a := range st.AptitudeAverages {
					r := alpha[a.Dimension]
					fmt.Fprintf(tw, "%s\t%.1f\t%.2f\t%d\n", a.Dimension, a.Score, r.Alpha, r.N)
				}
				_ = tw.Flush()
				if len(st.TopCareers) > 0 {
					fmt.Fprintln(w, "\nTop careers:")
					for i, cc := range st.TopCareers {
						fmt.Fprintf(w, "%2d. %s (%d)\n", i+1, cc.Career, cc.Count)
					}
				}
			})
		},
	}

	var out string
	export := &cobra.Command{
		Use:   "export",
		Short: "Download all answers as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.ctx(cmd)
			defer cancel()
			data, err := c.portal.Stats.ExportCSV(ctx, c.portal.Session.Token())
			if err != nil {
				return err
			}
			if out == "" || out == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(out, data, 0o600); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d bytes to %s.\n", len(data), out)
			return nil
		},
	}
	export.Flags().StringVarP(&out, "output", "o", "", "file to write, stdout when empty")

	cmd.AddCommand(export)
	return cmd
}
