package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"corrguessr-backend/internal/models"
	"corrguessr-backend/internal/plot"
	"corrguessr-backend/internal/services"
)

func newPlayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a game in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			width, _ := cmd.Flags().GetInt("width")
			height, _ := cmd.Flags().GetInt("height")

			// With --json only the results go to stdout.
			ui := cmd.OutOrStdout()
			if jsonOut {
				ui = cmd.ErrOrStderr()
			}

			session := &playSession{
				in:         bufio.NewScanner(cmd.InOrStdin()),
				out:        cmd.OutOrStdout(),
				ui:         ui,
				controller: services.NewRoundController(generatorFromFlags(cmd)),
				logger:     loggerFromFlags(cmd),
				jsonOut:    jsonOut,
				width:      width,
				height:     height,
			}
			return session.run()
		},
	}

	cmd.Flags().Int("width", plot.DefaultWidth, "Plot width in characters")
	cmd.Flags().Int("height", plot.DefaultHeight, "Plot height in lines")

	return cmd
}

var errQuit = errors.New("quit")

type playSession struct {
	in         *bufio.Scanner
	out        io.Writer
	ui         io.Writer
	controller *services.RoundController
	logger     *slog.Logger
	jsonOut    bool
	width      int
	height     int
}

func (p *playSession) run() error {
	state := p.controller.NewGame(models.GenerateGameID(), "terminal")

	for {
		err := p.playGame(state)
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := p.printResults(state); err != nil {
			return err
		}

		again, err := p.prompt("Play again? [y/N]: ")
		if err != nil || !strings.EqualFold(strings.TrimSpace(again), "y") {
			return nil
		}
		p.controller.Reset(state)
		p.logger.Debug("game reset", "game_id", state.ID)
	}
}

func (p *playSession) playGame(state *models.GameState) error {
	for !state.Finished() {
		fmt.Fprintf(p.ui, "\nRound %d/%d\n", state.Round, state.MaxRounds)
		if err := plot.Scatter(p.ui, state.Sample, p.width, p.height); err != nil {
			return err
		}

		round, err := p.readGuess(state)
		if err != nil {
			return err
		}

		fmt.Fprintf(p.ui, "Correlation: %.2f  Your guess: %g  Error: %.2f\n",
			round.RealizedCorrelation, round.Guess, round.AbsoluteError)
		p.logger.Debug("guess scored", "round", round.Index, "target", round.TargetCorrelation, "error", round.AbsoluteError)

		if state.Finished() {
			break
		}
		if _, err := p.prompt("Press Enter for the next round..."); err != nil {
			return err
		}
		if _, err := p.controller.AdvanceRound(state); err != nil {
			return err
		}
	}
	return nil
}

func (p *playSession) readGuess(state *models.GameState) (*models.Round, error) {
	for {
		line, err := p.prompt("Your guess [-1, 1] (q to quit): ")
		if err != nil {
			return nil, err
		}
		if strings.EqualFold(strings.TrimSpace(line), "q") {
			return nil, errQuit
		}

		guess, err := models.ParseGuess(line)
		if err != nil {
			fmt.Fprintln(p.ui, "Please enter a number between -1 and 1.")
			continue
		}

		return p.controller.SubmitGuess(state, guess)
	}
}

// prompt reads one line; end of input ends the game.
func (p *playSession) prompt(text string) (string, error) {
	fmt.Fprint(p.ui, text)
	if !p.in.Scan() {
		if err := p.in.Err(); err != nil {
			return "", err
		}
		fmt.Fprintln(p.ui)
		return "", errQuit
	}
	return p.in.Text(), nil
}

func (p *playSession) printResults(state *models.GameState) error {
	total, _ := p.controller.FinalScore(state)

	if p.jsonOut {
		return json.NewEncoder(p.out).Encode(models.ResultsResponse{
			GameID:     state.ID,
			Rounds:     state.Rounds,
			TotalError: models.RoundScore(total),
			Finished:   true,
		})
	}

	fmt.Fprintln(p.out)
	tw := tabwriter.NewWriter(p.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Round\tCorrelation\tGuess\tError")
	for _, r := range state.Rounds {
		fmt.Fprintf(tw, "%d\t%.2f\t%g\t%.2f\n", r.Index, r.RealizedCorrelation, r.Guess, r.AbsoluteError)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(p.out, "Total error: %.2f\n", models.RoundScore(total))
	return nil
}
