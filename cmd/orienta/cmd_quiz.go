package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/orienta/orienta/internal/client"
	"github.com/orienta/orienta/internal/models"
)

// parseAnswers reads "q01=4, q02=5" style pairs separated by commas or
// whitespace. ":" is accepted in place of "=".
func parseAnswers(s string) (map[string]int, error) {
	out := map[string]int{}
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\n' || r == '\t' || r == '\r'
	})
	for _, f := range fields {
		id, val, ok := strings.Cut(f, "=")
		if !ok {
			id, val, ok = strings.Cut(f, ":")
		}
		if !ok || id == "" {
			return nil, fmt.Errorf("answer %q must look like QUESTION=VALUE", f)
		}
		n, err := strconv.Atoi(val)
		if err != nil {
			return nil, fmt.Errorf("answer %q: value is not a number", f)
		}
		out[id] = n
	}
	return out, nil
}

func tab(w io.Writer) *tabwriter.Writer { return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0) }

func printAptitudes(w io.Writer, apts []models.Aptitude) {
	if len(apts) == 0 {
		fmt.Fprintln(w, "No aptitudes yet. Take the questionnaire with `orienta quiz`.")
		return
	}
	tw := tab(w)
	fmt.Fprintln(tw, "DIMENSION\tSCORE\t")
	for _, a := range apts {
		fmt.Fprintf(tw, "%s\t%.1f\t%s\n", a.Dimension, a.Score, strings.Repeat("#", int(a.Score/10)))
	}
	_ = tw.Flush()
}

func printRecommendations(w io.Writer, recs []models.Recommendation) {
	if len(recs) == 0 {
		fmt.Fprintln(w, "No recommendations yet.")
		return
	}
	tw := tab(w)
	fmt.Fprintln(tw, "CAREER\tUNIVERSITY\tDIMENSION\tLINK")
	for _, r := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Career, r.University, r.Dimension, r.Link)
	}
	_ = tw.Flush()
}

func printLastCareer(w io.Writer, lc *models.LastCareer) {
	fmt.Fprintf(w, "%s at %s\n", lc.Career, lc.University)
	if lc.Link != "" {
		fmt.Fprintln(w, lc.Link)
	}
	if !lc.SubmittedAt.IsZero() {
		fmt.Fprintf(w, "from the questionnaire of %s\n", lc.SubmittedAt.Local().Format("2006-01-02 15:04"))
	}
}

func (c *cli) questionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "questions",
		Short: "List the questionnaire",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.ctx(cmd)
			defer cancel()
			qs, err := c.portal.Questions(ctx)
			if err != nil {
				return err
			}
			return c.print(cmd, qs, func(w io.Writer) {
				tw := tab(w)
				fmt.Fprintln(tw, "ID\tDIMENSION\tQUESTION")
				for _, q := range qs {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", q.ID, q.Dimension, q.Text)
				}
				_ = tw.Flush()
			})
		},
	}
}

func (c *cli) quizCmd() *cobra.Command {
	var answers, file string
	cmd := &cobra.Command{
		Use:   "quiz",
		Short: "Answer the questionnaire and get recommendations",
		Long: `Answers are on a 1 (strongly disagree) to 5 (strongly agree) scale.
Without --answers or --file every question is asked in turn.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.ctx(cmd)
			defer cancel()
			qs, err := c.portal.Questions(ctx)
			if err != nil {
				return err
			}
			sheet := client.NewAnswerSheet(qs)

			given := answers
			if file != "" {
				data, err := c.readSource(file)
				if err != nil {
					return err
				}
				given += "\n" + data
			}
			if strings.TrimSpace(given) != "" {
				parsed, err := parseAnswers(given)
				if err != nil {
					return err
				}
				for id, v := range parsed {
					if err := sheet.Set(id, v); err != nil {
						return err
					}
				}
			} else if err := c.askAll(cmd, sheet); err != nil {
				return err
			}

			if missing := sheet.Missing(); len(missing) > 0 {
				ids := make([]string, len(missing))
				for i, q := range missing {
					ids[i] = q.ID
				}
				return fmt.Errorf("%d questions unanswered: %s", len(missing), strings.Join(ids, ", "))
			}
			res, err := c.portal.SubmitAnswers(ctx, sheet)
			if err != nil {
				return err
			}
			return c.print(cmd, res, func(w io.Writer) {
				fmt.Fprintf(w, "Submitted %d answers.\n\n", res.Count)
				printAptitudes(w, res.Aptitudes)
				fmt.Fprintln(w)
				printRecommendations(w, res.Recommendations)
			})
		},
	}
	cmd.Flags().StringVar(&answers, "answers", "", "answers as q01=4,q02=5,...")
	cmd.Flags().StringVar(&file, "file", "", "read answers from a file, - for stdin")
	return cmd
}

func (c *cli) readSource(name string) (string, error) {
	if name == "-" {
		data, err := io.ReadAll(c.in)
		return string(data), err
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("read answers: %w", err)
	}
	return string(data), nil
}

// askAll prompts for each unanswered question until it gets a valid value.
func (c *cli) askAll(cmd *cobra.Command, sheet *client.AnswerSheet) error {
	missing := sheet.Missing()
	for i, q := range missing {
		for {
			line, err := c.readLine(cmd, fmt.Sprintf("[%d/%d] %s (1-5): ", i+1, len(missing), q.Text))
			if err != nil {
				return err
			}
			v, err := strconv.Atoi(line)
			if err == nil {
				err = sheet.Set(q.ID, v)
			}
			if err == nil {
				break
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Please answer with a number from 1 to 5.")
		}
	}
	return nil
}

// studentToken returns the session token and the student to read, which
// defaults to the signed-in user.
func (c *cli) studentToken(student string) (string, string, error) {
	u := c.portal.Session.User()
	if u == nil {
		return "", "", client.ErrNotSignedIn
	}
	if student == "" {
		student = u.ID
	}
	return c.portal.Session.Token(), student, nil
}

func (c *cli) recommendationsCmd() *cobra.Command {
	var student string
	cmd := &cobra.Command{
		Use:     "recommendations",
		Aliases: []string{"recs"},
		Short:   "Show career recommendations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.ctx(cmd)
			defer cancel()
			var (
				recs []models.Recommendation
				err  error
			)
			if student == "" {
				recs, err = c.portal.Recommendations(ctx)
			} else {
				token, id, terr := c.studentToken(student)
				if terr != nil {
					return terr
				}
				recs, err = c.portal.Results.Recommendations(ctx, token, id)
			}
			if err != nil {
				return err
			}
			return c.print(cmd, recs, func(w io.Writer) { printRecommendations(w, recs) })
		},
	}
	cmd.Flags().StringVar(&student, "student", "", "student id (institutions and admins)")
	return cmd
}

func (c *cli) aptitudesCmd() *cobra.Command {
	var student string
	cmd := &cobra.Command{
		Use:   "aptitudes",
		Short: "Show aptitude scores",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.ctx(cmd)
			defer cancel()
			var (
				apts []models.Aptitude
				err  error
			)
			if student == "" {
				apts, err = c.portal.Aptitudes(ctx)
			} else {
				token, id, terr := c.studentToken(student)
				if terr != nil {
					return terr
				}
				apts, err = c.portal.Results.Aptitudes(ctx, token, id)
			}
			if err != nil {
				return err
			}
			return c.print(cmd, apts, func(w io.Writer) { printAptitudes(w, apts) })
		},
	}
	cmd.Flags().StringVar(&student, "student", "", "student id (institutions and admins)")
	return cmd
}

func (c *cli) lastCareerCmd() *cobra.Command {
	var student string
	cmd := &cobra.Command{
		Use:   "lastcareer",
		Short: "Show the top career of the latest questionnaire",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.ctx(cmd)
			defer cancel()
			var (
				lc  *models.LastCareer
				err error
			)
			if student == "" {
				lc, err = c.portal.LastCareer(ctx)
			} else {
				token, id, terr := c.studentToken(student)
				if terr != nil {
					return terr
				}
				lc, err = c.portal.Results.LastCareer(ctx, token, id)
			}
			if err != nil {
				return err
			}
			return c.print(cmd, lc, func(w io.Writer) { printLastCareer(w, lc) })
		},
	}
	cmd.Flags().StringVar(&student, "student", "", "student id (institutions and admins)")
	return cmd
}

func (c *cli) dashboardCmd() *cobra.Command {
	var student string
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show aptitudes and the last career together",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, id, err := c.studentToken(student)
			if err != nil {
				return err
			}
			ctx, cancel := c.ctx(cmd)
			defer cancel()
			d, err := c.portal.Results.Dashboard(ctx, token, id)
			if err != nil {
				return err
			}
			if d.LastCareer == nil {
				return errors.New("no results yet")
			}
			return c.print(cmd, d, func(w io.Writer) {
				printLastCareer(w, d.LastCareer)
				fmt.Fprintln(w)
				printAptitudes(w, d.Aptitudes)
			})
		},
	}
	cmd.Flags().StringVar(&student, "student", "", "student id (institutions and admins)")
	return cmd
}
