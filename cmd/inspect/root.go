package main

import (
	"fmt"
	"io"
	"standupbot/domain/standup"
	"standupbot/infrastructure/storage"
	"standupbot/services"
	"strconv"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

type opener func() (services.IHistoryService, func(), error)

func newRootCmd(open opener) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "inspect",
		Short:        "Inspect standup sessions, transcripts and answers",
		Long:         "inspect reads the standup bot storage: live sessions, the transcript of a day and a full-text search over answers.",
		SilenceUsage: true,
	}
	rootCmd.AddCommand(
		newSessionsCmd(open),
		newHistoryCmd(open),
		newSearchCmd(open),
	)
	return rootCmd
}

func newSessionsCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List the saved session of every channel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			service, closer, err := open()
			if err != nil {
				return err
			}
			defer closer()

			snapshots, err := service.Sessions()
			if err != nil {
				return err
			}
			table := newTable(cmd.OutOrStdout(), "Channel", "Day", "Status", "Current", "Question", "Done", "Members")
			for _, s := range snapshots {
				table.Append([]string{
					string(s.Channel),
					s.Day(),
					statusColour(s.Status),
					string(s.Current),
					strconv.Itoa(s.QuestionIndex + 1),
					strconv.Itoa(len(s.Completed) + len(s.Excused)),
					strconv.Itoa(len(s.Members)),
				})
			}
			table.Render()
			return nil
		},
	}
}

func newHistoryCmd(open opener) *cobra.Command {
	var channel, day string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the transcript of a channel for one day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			service, closer, err := open()
			if err != nil {
				return err
			}
			defer closer()

			entries, err := service.Day(standup.ChannelID(channel), day)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), "No transcript for this day")
				return err
			}
			table := newTable(cmd.OutOrStdout(), "Time", "Member", "Question", "Answer")
			for _, e := range entries {
				name := e.MemberName
				if name == "" {
					name = string(e.Member)
				}
				answer := e.Answer
				if e.Kind == storage.EntryExcused {
					answer = color.New(color.FgYellow).Render(string(e.Reason))
				}
				table.Append([]string{e.At.Format("15:04:05"), name, e.Question, answer})
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&channel, "channel", "", "channel id")
	cmd.Flags().StringVar(&day, "day", "", "day as YYYY-MM-DD, today when empty")
	_ = cmd.MarkFlagRequired("channel")
	return cmd
}

func newSearchCmd(open opener) *cobra.Command {
	var channel string
	var limit int
	cmd := &cobra.Command{
		Use:   "search <text>",
		Short: "Search every recorded answer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			service, closer, err := open()
			if err != nil {
				return err
			}
			defer closer()

			hits, err := service.Search(cmd.Context(), standup.ChannelID(channel), args[0], limit)
			if err != nil {
				return err
			}
			table := newTable(cmd.OutOrStdout(), "Score", "Day", "Channel", "Member", "Question", "Answer")
			for _, h := range hits {
				table.Append([]string{
					fmt.Sprintf("%.2f", h.Score),
					h.Day,
					string(h.Channel),
					h.Name,
					h.Question,
					h.Answer,
				})
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&channel, "channel", "", "restrict to one channel id")
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum number of answers")
	return cmd
}

func newTable(out io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(out)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}

func statusColour(status standup.Status) string {
	switch status {
	case standup.StatusActive:
		return color.New(color.FgGreen).Render(string(status))
	case standup.StatusComplete:
		return color.New(color.FgCyan).Render(string(status))
	case standup.StatusAborted:
		return color.New(color.FgRed).Render(string(status))
	default:
		return string(status)
	}
}
