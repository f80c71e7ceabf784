package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"edusphere/internal/portal"
)

var studyCmd = &cobra.Command{
	Use:   "study SUBJECT",
	Short: "Generate a study pack: mind map, notes, slides, audio summary and optional video",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		topic, _ := cmd.Flags().GetString("topic")
		folderID, _ := cmd.Flags().GetString("folder")
		video, _ := cmd.Flags().GetBool("video")
		audioOut, _ := cmd.Flags().GetString("audio-out")

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if folderID != "" {
			if err := requireAdmin(a); err != nil {
				return fmt.Errorf("filing notes into a folder: %w", err)
			}
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Fprintln(cmd.ErrOrStderr(), "Generating study pack...")
		pack, err := a.Study(ctx, portal.StudyRequest{
			SubjectID: args[0],
			FolderID:  folderID,
			Topic:     topic,
			Video:     video,
		})
		if err != nil {
			return err
		}

		printStudyPack(cmd.OutOrStdout(), pack)

		if audioOut != "" && pack.Audio != nil {
			if err := writeOutput(cmd, audioOut, func(w io.Writer) error {
				_, err := w.Write(pack.Audio.WAV())
				return err
			}); err != nil {
				return err
			}
		}
		return nil
	},
}

func printStudyPack(w io.Writer, pack *portal.StudyPack) {
	fmt.Fprintf(w, "%s: %s\n\n", pack.Subject.Name, pack.Topic)

	if pack.MindMap != nil {
		fmt.Fprintf(w, "Mind map (%d nodes)\n", pack.MindMap.Count())
		printMindMap(w, pack.MindMap, 1)
		fmt.Fprintln(w)
	}
	if pack.Notes != nil {
		fmt.Fprintf(w, "%s\n%s\n\n", pack.Notes.Title, strings.TrimSpace(pack.Notes.Body))
	}
	if len(pack.Slides) > 0 {
		fmt.Fprintln(w, "Slides")
		for i, s := range pack.Slides {
			fmt.Fprintf(w, "  %d. %s\n", i+1, s.Title)
			for _, point := range s.Content {
				fmt.Fprintf(w, "     - %s\n", point)
			}
		}
		fmt.Fprintln(w)
	}
	if pack.Audio != nil {
		fmt.Fprintf(w, "Audio summary: %.1fs\n", pack.Audio.Duration())
	}
	if pack.VideoURL != "" {
		fmt.Fprintf(w, "Video lecture: %s\n", pack.VideoURL)
	}
	if pack.Material != nil {
		fmt.Fprintf(w, "Notes filed as %s (%s)\n", pack.Material.ID, pack.Material.Title)
	}
	for _, f := range pack.Failures {
		fmt.Fprintf(w, "FAILED %s: %s\n", f.Step, f.Message)
	}
}

func printMindMap(w io.Writer, n *portal.MindMapNode, depth int) {
	fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", depth), n.Name)
	for _, c := range n.Children {
		printMindMap(w, c, depth+1)
	}
}

func init() {
	studyCmd.Flags().String("topic", "", "Topic (default: "+portal.DefaultTopic+")")
	studyCmd.Flags().String("folder", "", "File the generated notes into this folder")
	studyCmd.Flags().Bool("video", false, "Also generate a video lecture (slow)")
	studyCmd.Flags().String("audio-out", "", "Write the audio summary to this WAV file")
}
