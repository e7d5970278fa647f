package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stemsi/exstem-quiz/internal/client"
	"github.com/stemsi/exstem-quiz/internal/export"
	"github.com/stemsi/exstem-quiz/internal/logger"
	"github.com/stemsi/exstem-quiz/internal/model"
	"github.com/stemsi/exstem-quiz/internal/session"
	"github.com/stemsi/exstem-quiz/internal/tui"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	def := session.DefaultConfig()

	root := &cobra.Command{
		Use:          "examtaker",
		Short:        "Take a timed multiple-choice exam in the terminal",
		SilenceUsage: true,
		RunE:         runExam,
	}

	pf := root.PersistentFlags()
	pf.String("server", "http://localhost:3000", "Results server base URL")
	pf.Int("retries", 3, "Attempts per request to the results server")
	pf.String("log-file", "", "Write logs to this file instead of stderr")
	pf.String("log-level", "warn", "Log level (debug, info, warn, error)")

	f := root.Flags()
	f.StringP("questions", "q", "", "Questions JSON file (default: built-in set)")
	f.Duration("per-question", def.PerQuestion, "Time allowed per question")
	f.Duration("warning", def.Warning, "Remaining time at which the countdown turns urgent")
	f.Duration("grace", def.Grace, "Pause after a question times out before moving on")

	root.AddCommand(resultsCmd(), detailsCmd(), exportCmd())
	return root
}

func resultsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "results <student id>",
		Short: "List stored exam sessions of one student",
		Args:  cobra.ExactArgs(1),
		RunE:  runResults,
	}
}

func detailsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "details <exam session id>",
		Short: "Show the per-question answers of one stored session",
		Args:  cobra.ExactArgs(1),
		RunE:  runDetails,
	}
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Download all stored exam sessions as an XLSX workbook",
		Args:  cobra.NoArgs,
		RunE:  runExport,
	}
	cmd.Flags().StringP("out", "o", "", "Output file (default: exam-results-<timestamp>.xlsx)")
	return cmd
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("EXAMTAKER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("examtaker")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/examtaker")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "warning: reading config file: %v\n", err)
		}
	}
	return v
}

// setupLogging logs to --log-file, or to stderr when none is given. The
// returned function closes the log file.
func setupLogging(v *viper.Viper) (zerolog.Logger, func(), error) {
	path := v.GetString("log-file")
	if path == "" {
		return logger.New(os.Stderr, v.GetString("log-level"), "pretty"), func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("open log file: %w", err)
	}
	return logger.New(f, v.GetString("log-level"), "json"), func() { _ = f.Close() }, nil
}

func newClient(v *viper.Viper, log zerolog.Logger) *client.Client {
	return client.New(v.GetString("server"), log, client.WithRetry(v.GetInt("retries"), 500*time.Millisecond))
}

func loadQuestions(path string) ([]model.Question, error) {
	if path == "" {
		return session.DefaultQuestions(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open questions: %w", err)
	}
	defer f.Close()
	return session.LoadQuestions(f)
}

func runExam(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)
	log, closeLog, err := setupLogging(v)
	if err != nil {
		return err
	}
	defer closeLog()

	questions, err := loadQuestions(v.GetString("questions"))
	if err != nil {
		return err
	}
	m, err := session.NewMachine(questions, session.Config{
		PerQuestion: v.GetDuration("per-question"),
		Warning:     v.GetDuration("warning"),
		Grace:       v.GetDuration("grace"),
	})
	if err != nil {
		return fmt.Errorf("load exam: %w", err)
	}

	log.Info().
		Int("questions", m.Total()).
		Dur("per_question", m.Config().PerQuestion).
		Str("server", v.GetString("server")).
		Msg("Starting exam client")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return tui.New(m, newClient(v, log), os.Stdin, os.Stdout, log).Run(ctx)
}

func runResults(cmd *cobra.Command, args []string) error {
	v := viperForCmd(cmd)
	log, closeLog, err := setupLogging(v)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	sessions, err := newClient(v, log).StudentResults(ctx, args[0])
	if err != nil {
		return err
	}
	return printSessions(cmd.OutOrStdout(), sessions)
}

func runDetails(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid exam session id %q", args[0])
	}

	v := viperForCmd(cmd)
	log, closeLog, err := setupLogging(v)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	answers, err := newClient(v, log).ExamDetails(ctx, id)
	if err != nil {
		return err
	}
	return printAnswers(cmd.OutOrStdout(), answers)
}

func runExport(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)
	log, closeLog, err := setupLogging(v)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	data, err := newClient(v, log).ExportResults(ctx)
	if err != nil {
		return err
	}

	path := v.GetString("out")
	if path == "" {
		path = export.Filename(time.Now())
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", path, len(data))
	return nil
}

func printSessions(out io.Writer, sessions []model.SessionSummary) error {
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(out, "No exam sessions found.")
		return err
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SESSION\tNAME\tSCORE\tCORRECT\tTIME\tFINISHED")
	for _, s := range sessions {
		fmt.Fprintf(w, "%d\t%s\t%d%%\t%d/%d\t%s\t%s\n",
			s.ExamSessionID, s.Name, s.TotalScore, s.CorrectAnswers, s.TotalQuestions,
			session.FormatClock(s.TimeTaken), s.EndTime.Local().Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func printAnswers(out io.Writer, answers []model.QuestionAnswer) error {
	if len(answers) == 0 {
		_, err := fmt.Fprintln(out, "No answers stored for this session.")
		return err
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "QUESTION\tANSWER\tCORRECT ANSWER\tRESULT\tTIME SPENT")
	for _, a := range answers {
		given := "-"
		if a.StudentAnswer >= 0 {
			given = string(rune('a' + a.StudentAnswer))
		}
		result := "incorrect"
		switch {
		case a.StudentAnswer < 0:
			result = "unanswered"
		case a.IsCorrect:
			result = "correct"
		}
		fmt.Fprintf(w, "%d\t%s\t%c\t%s\t%ds\n", a.QuestionNumber, given, 'a'+rune(a.CorrectAnswer), result, a.TimeSpent)
	}
	return w.Flush()
}
