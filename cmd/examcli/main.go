// Command examcli is a terminal exam taker. It logs in, loads an exam,
// drives the attempt state machine (countdown, autosave, low-time
// warnings) and prints the scored result after submission.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/tranquocan24/online-exam-system/internal/client"
	"github.com/tranquocan24/online-exam-system/internal/config"
	"github.com/tranquocan24/online-exam-system/internal/logger"
	"github.com/tranquocan24/online-exam-system/internal/model"
	"github.com/tranquocan24/online-exam-system/internal/session"
	"golang.org/x/term"
)

func main() {
	var (
		baseURL  string
		examArg  string
		username string
	)
	flag.StringVar(&baseURL, "server", "http://localhost:8080", "Portal base URL")
	flag.StringVar(&examArg, "exam", "", "Exam ID to take")
	flag.StringVar(&username, "user", "", "Username")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, "pretty")

	if examArg == "" || username == "" {
		fmt.Println("Usage: examcli -exam <exam_id> -user <username> [-server <url>]")
		os.Exit(1)
	}

	examID, err := uuid.Parse(examArg)
	if err != nil {
		fmt.Println("Error: invalid exam id")
		os.Exit(1)
	}

	fmt.Print("Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		fmt.Println("Error reading password")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	api := client.New(baseURL)
	user, err := api.Login(ctx, username, string(bytePassword))
	if err != nil {
		log.Fatal().Err(err).Msg("Login failed")
	}
	fmt.Printf("Welcome, %s!\n\n", user.Name)

	sess := session.New(session.Config{
		ExamID:   examID,
		UserID:   user.ID,
		Exams:    api,
		Progress: api,
		Results:  api,
		Logger:   log,
		Hooks: session.Hooks{
			OnTimeWarning: func(remaining int) {
				fmt.Printf("\n*** %d minute(s) remaining! ***\n> ", remaining/60)
			},
			OnSubmitError: func(err error, retryable bool) {
				if retryable {
					fmt.Printf("\nSubmission failed (%v). Your exam is still active; type 'submit' to retry.\n> ", err)
				} else {
					fmt.Printf("\nSubmission failed (%v). Time is up; retrying automatically...\n", err)
				}
			},
			OnSubmitted: func(resultID uuid.UUID) {
				fmt.Printf("\nSubmitted! Result ID: %s\n", resultID)
			},
		},
	})

	runner := session.NewRunner(sess)
	runDone := make(chan error, 1)
	go func() { runDone <- runner.Run(ctx) }()

	// Resume a previous attempt if a snapshot exists.
	if p, err := api.GetProgress(ctx, examID); err == nil {
		runner.Do(func(_ context.Context, s *session.Session) { s.Restore(p) })
		fmt.Println("Restored saved progress.")
	}

	go readCommands(runner)

	if err := <-runDone; err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		log.Fatal().Err(err).Msg("Session ended with error")
	}

	printResult(ctx, api, sess.ResultID())
}

// readCommands pumps interactive commands into the runner until it stops.
func readCommands(runner *session.Runner) {
	reader := bufio.NewReader(os.Stdin)
	fmt.Println("Commands: show, answer <value>, clear, next, prev, goto <n>, status, submit")

	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		cmd, args := fields[0], fields[1:]

		ok := runner.Do(func(ctx context.Context, s *session.Session) {
			handleCommand(ctx, s, cmd, args)
		})
		if !ok {
			return
		}
	}
}

func handleCommand(ctx context.Context, s *session.Session, cmd string, args []string) {
	switch cmd {
	case "show":
		printQuestion(s)
	case "answer":
		if len(args) == 0 {
			fmt.Println("Usage: answer <value>  (option number, comma list, or text)")
			return
		}
		ans := parseAnswer(s, strings.Join(args, " "))
		if err := s.SetAnswer(s.Current(), ans); err != nil {
			fmt.Println("Error:", err)
			return
		}
		fmt.Println("Saved.")
	case "clear":
		if err := s.ClearAnswer(s.Current()); err != nil {
			fmt.Println("Error:", err)
		}
	case "next":
		s.Next()
		printQuestion(s)
	case "prev":
		s.Prev()
		printQuestion(s)
	case "goto":
		if len(args) == 0 {
			fmt.Println("Usage: goto <question number>")
			return
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			fmt.Println("Error: question number must be numeric")
			return
		}
		s.GoTo(n - 1)
		printQuestion(s)
	case "status":
		printStatus(s)
	case "submit":
		printStatus(s)
		fmt.Print("Submit now? This cannot be undone (yes/no): ")
		var confirm string
		fmt.Scanln(&confirm)
		if confirm != "yes" && confirm != "y" {
			fmt.Println("Cancelled.")
			return
		}
		if err := s.Submit(ctx); err != nil {
			fmt.Println("Submit error:", err)
		}
	default:
		fmt.Println("Unknown command:", cmd)
	}
}

// parseAnswer interprets user input according to the current question type:
// an option number for single choice, a comma list for multi choice, raw
// text otherwise.
func parseAnswer(s *session.Session, input string) model.Answer {
	exam := s.Exam()
	if exam == nil {
		return model.Answer{}
	}
	q := exam.Questions[s.Current()]

	switch q.Type {
	case model.QuestionSingleChoice:
		if n, err := strconv.Atoi(strings.TrimSpace(input)); err == nil {
			return model.IndexAnswer(n - 1)
		}
		return model.Answer{}
	case model.QuestionMultiChoice:
		var indices []int
		for _, part := range strings.Split(input, ",") {
			n, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				return model.Answer{}
			}
			indices = append(indices, n-1)
		}
		return model.IndexSetAnswer(indices...)
	default:
		return model.TextAnswer(input)
	}
}

func printQuestion(s *session.Session) {
	exam := s.Exam()
	if exam == nil || len(exam.Questions) == 0 {
		fmt.Println("No questions.")
		return
	}

	i := s.Current()
	q := exam.Questions[i]
	fmt.Printf("\n[%d/%d] %s\n", i+1, len(exam.Questions), q.Prompt)
	for j, opt := range q.Options {
		fmt.Printf("  %d) %s\n", j+1, opt)
	}
	if ans := s.Answer(i); ans.IsSet() {
		fmt.Printf("Your answer: %s\n", describeAnswer(ans))
	}
}

func printStatus(s *session.Session) {
	exam := s.Exam()
	if exam == nil {
		return
	}
	fmt.Printf("%s — answered %d/%d, %02d:%02d remaining\n",
		exam.Title,
		s.AnsweredCount(), len(exam.Questions),
		s.Remaining()/60, s.Remaining()%60)
}

func describeAnswer(a model.Answer) string {
	switch a.Kind {
	case model.AnswerIndex:
		return fmt.Sprintf("option %d", a.Index+1)
	case model.AnswerIndexSet:
		parts := make([]string, 0, len(a.Indices))
		for _, idx := range a.SortedIndices() {
			parts = append(parts, strconv.Itoa(idx+1))
		}
		return "options " + strings.Join(parts, ", ")
	case model.AnswerText:
		return a.Text
	default:
		return "(none)"
	}
}

func printResult(ctx context.Context, api *client.Client, resultID uuid.UUID) {
	if resultID == uuid.Nil {
		return
	}

	view, err := api.GetResult(ctx, resultID)
	if err != nil {
		fmt.Println("Could not fetch the scored result:", err)
		return
	}

	r := view.Result
	fmt.Printf("\n=== %s ===\n", r.ExamTitle)
	fmt.Printf("Score: %d/100 (%d of %d correct)\n", r.Score, r.CorrectCount, r.TotalCount)
	fmt.Printf("Time spent: %02d:%02d\n", r.TimeSpentSeconds/60, r.TimeSpentSeconds%60)
	if r.IsTimeUp {
		fmt.Println("Note: this attempt was auto-submitted when time ran out.")
	}
}
