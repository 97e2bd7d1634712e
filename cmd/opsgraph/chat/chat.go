// Package chatcmder provides an interactive chat client for a running
// opsgraph API server.
package chatcmder

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/opsgraph/opsgraph/api"
	"github.com/opsgraph/opsgraph/pkg/config"
	"github.com/opsgraph/opsgraph/pkg/logger"
)

var (
	userPrompt      = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	assistantPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("opsgraph> ")
	sourceStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("242")).Italic(true)
	degradedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
)

type chatCommander struct {
	apiTarget string
	noGraph   bool
	debug     bool
}

const chatLongDesc string = `Start an interactive chat session against a running opsgraph server.

Each answer is grounded in graph facts unless --no-graph is set, and the
sources backing the answer are printed underneath it. The conversation id
is kept for the whole session so follow-up questions have history.

Examples:
  opsgraph chat
  opsgraph chat --api-target http://localhost:8080
  opsgraph chat --no-graph`

const chatShortDesc string = "Interactive chat against a running opsgraph server"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}
	flags := config.DefaultFlags()

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return err
			}

			if !cmd.Flags().Changed("api-target") {
				cmder.apiTarget = v.GetString("client.api_target")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, flags, config.FlagAPITarget, &cmder.apiTarget)
	cmd.Flags().BoolVar(&cmder.noGraph, "no-graph", false, "Answer without graph context")

	return cmd
}

func (c *chatCommander) run() error {
	log := logger.New(logger.WithPretty(true), logger.WithDebug(c.debug))
	log.Debug("chat session starting", "api_target", c.apiTarget)

	fmt.Println("Connected to", c.apiTarget, "— type your question, or \"exit\" to quit.")

	scanner := bufio.NewScanner(os.Stdin)
	conversationID := ""

	for {
		fmt.Print(userPrompt)
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}

		message := strings.TrimSpace(scanner.Text())
		if message == "" {
			continue
		}
		if message == "exit" || message == "quit" {
			return nil
		}

		answer, err := c.send(message, conversationID)
		if err != nil {
			log.Error("request failed", "err", err)
			continue
		}
		conversationID = answer.ConversationID

		fmt.Println(assistantPrompt + answer.Response)
		if answer.ContextDegraded {
			fmt.Println(degradedStyle.Render("  (context incomplete: some graph facts were unavailable)"))
		}
		if len(answer.Sources) > 0 {
			var refs []string
			for _, src := range answer.Sources {
				if src.ID == "" {
					refs = append(refs, string(src.Kind))
					continue
				}
				refs = append(refs, fmt.Sprintf("%s/%s", src.Kind, src.ID))
			}
			fmt.Println(sourceStyle.Render("  sources: " + strings.Join(refs, ", ")))
		}
		fmt.Println()
	}
}

func (c *chatCommander) send(message, conversationID string) (*api.ChatResponse, error) {
	useGraph := !c.noGraph
	body, err := json.Marshal(api.ChatRequest{
		Message:         message,
		ConversationID:  conversationID,
		UseGraphContext: &useGraph,
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	url := strings.TrimSuffix(c.apiTarget, "/") + "/chat"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr api.ErrorResponse
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("server error (status %d): %s", resp.StatusCode, apiErr.Error)
		}
		return nil, fmt.Errorf("server error (status %d)", resp.StatusCode)
	}

	var answer api.ChatResponse
	if err := json.Unmarshal(raw, &answer); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return &answer, nil
}
