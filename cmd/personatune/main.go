// Command personatune tunes the instruction of the persona rephrasing task.
// It prints a baseline sample, searches for a better instruction with a
// proposer LM and an LM judge, prints the tuned sample and saves the tuned
// program as JSON.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/teilomillet/personatune/config"
	"github.com/teilomillet/personatune/dataset"
	"github.com/teilomillet/personatune/history"
	"github.com/teilomillet/personatune/llm"
	"github.com/teilomillet/personatune/optimizer"
	"github.com/teilomillet/personatune/persona"
	"github.com/teilomillet/personatune/program"
	"github.com/teilomillet/personatune/providers"
	"github.com/teilomillet/personatune/utils"
)

// cmdFlags holds all command-line flags
type cmdFlags struct {
	envFile    string
	examples   string
	out        string
	baseURL    string
	history    string
	logLevel   string
	debugDir   string
	trials     int
	candidates int
	minibatch  int
	seed       int64
	confirm    bool
}

// parseFlags parses args and returns the config options for the flags that
// were actually set, so unset flags leave env and defaults alone.
func parseFlags(args []string, stderr io.Writer) (*cmdFlags, []config.ConfigOption, error) {
	flags := &cmdFlags{}
	fs := flag.NewFlagSet("personatune", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&flags.envFile, "env-file", ".env", "Env file loaded before PERSONA_* variables are read")
	fs.StringVar(&flags.examples, "examples", "", "YAML file with examples (default: built-in set)")
	fs.StringVar(&flags.out, "out", "", "Path of the saved program (default optimized_program.json)")
	fs.StringVar(&flags.baseURL, "base-url", "", "OpenAI-compatible API base URL")
	fs.StringVar(&flags.history, "history", "", "SQLite file to record the run in")
	fs.StringVar(&flags.logLevel, "log-level", "", "Log level (off, error, warn, info, debug)")
	fs.StringVar(&flags.debugDir, "debug-dir", "", "Directory for proposer prompts and trial traces")
	fs.IntVar(&flags.trials, "trials", 0, "Number of search trials")
	fs.IntVar(&flags.candidates, "candidates", 0, "Number of candidate instructions")
	fs.IntVar(&flags.minibatch, "minibatch", 0, "Validation examples per trial")
	fs.Int64Var(&flags.seed, "seed", 0, "Search seed")
	fs.BoolVar(&flags.confirm, "confirm", false, "Ask before starting the search")
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	if fs.NArg() > 0 {
		return nil, nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	var opts []config.ConfigOption
	var parseErr error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "examples":
			opts = append(opts, config.SetExamplesPath(flags.examples))
		case "out":
			opts = append(opts, config.SetOutputPath(flags.out))
		case "base-url":
			opts = append(opts, config.SetBaseURL(flags.baseURL))
		case "history":
			opts = append(opts, config.SetHistoryPath(flags.history))
		case "log-level":
			var level utils.LogLevel
			if err := level.UnmarshalText([]byte(flags.logLevel)); err != nil {
				parseErr = err
				return
			}
			opts = append(opts, config.SetLogLevel(level))
		case "trials":
			opts = append(opts, config.SetNumTrials(flags.trials))
		case "candidates":
			opts = append(opts, config.SetNumCandidates(flags.candidates))
		case "minibatch":
			opts = append(opts, config.SetMinibatchSize(flags.minibatch))
		case "seed":
			opts = append(opts, config.SetOptimizerSeed(flags.seed))
		}
	})
	if parseErr != nil {
		return nil, nil, parseErr
	}
	return flags, opts, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		stop()
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		exitWithError("Error: %v\n", err)
	}
}

// exitWithError prints an error message and exits
func exitWithError(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format, args...)
	os.Exit(1)
}

// backends holds the three LM handles of a run.
type backends struct {
	student  *llm.LLMImpl
	proposer *llm.LLMImpl
	judge    *llm.LLMImpl
}

func newBackends(cfg *config.Config, logger utils.Logger) (*backends, error) {
	registry := providers.GetDefaultRegistry()
	build := func(role config.Role) (*llm.LLMImpl, error) {
		mc, err := cfg.ForRole(role)
		if err != nil {
			return nil, err
		}
		lm, err := llm.NewLLM(mc, logger, registry)
		if err != nil {
			return nil, fmt.Errorf("%s backend: %w", role, err)
		}
		return lm, nil
	}

	var b backends
	var err error
	if b.student, err = build(config.RoleStudent); err != nil {
		return nil, err
	}
	if b.proposer, err = build(config.RoleProposer); err != nil {
		return nil, err
	}
	if b.judge, err = build(config.RoleJudge); err != nil {
		return nil, err
	}
	return &b, nil
}

func loadExamples(cfg *config.Config) (train, val []dataset.Example, err error) {
	examples := dataset.Default()
	if cfg.ExamplesPath != "" {
		if examples, err = dataset.LoadFile(cfg.ExamplesPath); err != nil {
			return nil, nil, err
		}
	}
	return dataset.Split(examples, cfg.Optimizer.TrainSize)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	flags, opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	if err := config.LoadEnvFile(flags.envFile); err != nil {
		return err
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	config.ApplyOptions(cfg, opts...)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := utils.NewLoggerWithWriter(stderr, cfg.LogLevel)

	train, val, err := loadExamples(cfg)
	if err != nil {
		return err
	}

	lms, err := newBackends(cfg, logger)
	if err != nil {
		return err
	}
	judge := persona.NewJudge(lms.judge, persona.WithJudgeLogger(logger))

	// Baseline
	ex := train[0]
	task := persona.NewRephrase()
	baseline, err := sample(ctx, task, lms.student, judge, ex)
	if err != nil {
		return fmt.Errorf("baseline: %w", err)
	}
	printBaseline(stdout, ex, baseline)

	optOpts := []optimizer.OptimizerOption{
		optimizer.WithNumCandidates(cfg.Optimizer.NumCandidates),
		optimizer.WithNumTrials(cfg.Optimizer.NumTrials),
		optimizer.WithMinibatchSize(cfg.Optimizer.MinibatchSize),
		optimizer.WithMinibatchFullEvalSteps(cfg.Optimizer.MinibatchFullEvalSteps),
		optimizer.WithMaxBootstrappedDemos(cfg.Optimizer.MaxBootstrappedDemos),
		optimizer.WithMaxLabeledDemos(cfg.Optimizer.MaxLabeledDemos),
		optimizer.WithSeed(cfg.Optimizer.Seed),
		optimizer.WithMetricModel(lms.judge.Model()),
		optimizer.WithLogger(logger),
		optimizer.WithTrialCallback(progressPrinter(stdout, cfg.Optimizer.NumTrials)),
	}
	if cfg.HistoryPath != "" {
		store, err := history.Open(cfg.HistoryPath)
		if err != nil {
			return err
		}
		defer store.Close()
		optOpts = append(optOpts, optimizer.WithHistory(store))
	}
	if flags.confirm {
		optOpts = append(optOpts, optimizer.WithConfirm(promptConfirm(stdin, stdout)))
	}
	if flags.debugDir != "" {
		optOpts = append(optOpts, optimizer.WithDebugManager(utils.NewDebugManager(logger, utils.DebugOptions{
			Enabled:      true,
			OutputDir:    flags.debugDir,
			SaveToFile:   true,
			LogPrompts:   true,
			LogResponses: true,
		})))
	}

	printSearchHeader(stdout, cfg.Optimizer.NumTrials)
	opt := optimizer.NewInstructionOptimizer(lms.student, lms.proposer, judge.Score, optOpts...)
	result, err := opt.Compile(ctx, task, train, val)
	if err != nil {
		return fmt.Errorf("optimization: %w", err)
	}

	printInstruction(stdout, result.Program.Instructions())

	tuned, err := sample(ctx, result.Program, lms.student, judge, ex)
	if err != nil {
		return fmt.Errorf("optimized sample: %w", err)
	}
	printOptimized(stdout, tuned)

	meta := program.Metadata{
		RunID:         result.RunID,
		StudentModel:  lms.student.Model(),
		ProposerModel: lms.proposer.Model(),
		JudgeModel:    lms.judge.Model(),
		BaselineScore: result.BaselineScore,
		BestScore:     result.BestScore,
		NumTrials:     cfg.Optimizer.NumTrials,
		NumCandidates: len(result.Candidates),
	}
	if err := program.Save(cfg.OutputPath, result.Program, meta); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "\nSaved to %s\n", cfg.OutputPath)

	printUsage(stdout, []roleUsage{
		{config.RoleStudent, lms.student},
		{config.RoleProposer, lms.proposer},
		{config.RoleJudge, lms.judge},
	}, judge.ParseFailures())
	return nil
}

// sampleResult is one rephrase of the sample example and its judge score.
type sampleResult struct {
	Response string
	Score    float64
}

func sample(ctx context.Context, task *program.Predict, student llm.LLM, judge *persona.Judge, ex dataset.Example) (sampleResult, error) {
	response, err := persona.Rephrase(ctx, task, student, ex)
	if err != nil {
		return sampleResult{}, err
	}
	score, err := judge.Score(ctx, ex, program.Prediction{dataset.FieldResponse: response})
	if err != nil {
		return sampleResult{}, err
	}
	return sampleResult{Response: response, Score: score}, nil
}

// promptConfirm asks on stdin before the search starts.
func promptConfirm(stdin io.Reader, stdout io.Writer) optimizer.ConfirmFunc {
	return func(plan optimizer.Plan) bool {
		fmt.Fprintf(stdout, "About to run %d trials over %d candidates, about %d LM calls. Continue? [y/N] ",
			plan.Trials, plan.Candidates, plan.TotalCalls())
		line, _ := bufio.NewReader(stdin).ReadString('\n')
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes"
	}
}
