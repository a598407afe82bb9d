package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/spaghettifunk/epoch/engine"
	"github.com/spaghettifunk/epoch/engine/assetpack"
	"github.com/spaghettifunk/epoch/engine/assets"
	"github.com/spaghettifunk/epoch/engine/core"
	"github.com/spaghettifunk/epoch/engine/project"
	"github.com/spaghettifunk/epoch/testbed"
)

func newBuildCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "build <project-file>",
		Short: "Build the asset pack of a project",
		Long: `Imports the project's asset directory, then packs the start scene,
every scene it links and the assets they use, plus the compiled script module.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd.OutOrStdout(), args[0], output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "pack path (default: <assets>/AssetPack.eap)")
	return cmd
}

func runBuild(out io.Writer, projectPath, output string) error {
	proj, err := project.Load(projectPath)
	if err != nil {
		return err
	}
	am := assets.NewAssetManager(proj.AssetDirectory(), proj.AssetRegistryPath())
	if err := am.Initialize(); err != nil {
		return err
	}
	defer am.Close()

	builder := assetpack.NewBuilder(assetpack.NewRegistry(nil), am)
	progress := assetpack.NewProgress()
	done := make(chan struct{})
	var reporter sync.WaitGroup
	reporter.Add(1)
	go func() {
		defer reporter.Done()
		reportProgress(out, progress, done)
	}()

	start := time.Now()
	if output == "" {
		output = proj.AssetPackPath()
	}
	result, err := builder.BuildTo(proj, output, progress)
	close(done)
	// out is not safe for concurrent use
	reporter.Wait()
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\rpacked %d assets (%s) in %s\n", result.UniqueAssets, humanize.Bytes(result.Size), time.Since(start).Round(time.Millisecond))
	if len(result.Failed) > 0 {
		fmt.Fprintf(out, "%d entries failed and are missing from the pack: %v\n", len(result.Failed), result.Failed)
	}
	return nil
}

// progressInterval is how often the build progress line is redrawn.
var progressInterval = 100 * time.Millisecond

func reportProgress(out io.Writer, progress *assetpack.Progress, done <-chan struct{}) {
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			fmt.Fprintf(out, "\rbuilding asset pack... %3.0f%%", progress.Value()*100)
		}
	}
}

func newInspectCommand() *cobra.Command {
	var verify bool
	cmd := &cobra.Command{
		Use:   "inspect <pack>",
		Short: "Print the header and index of an asset pack",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd.OutOrStdout(), args[0], verify)
		},
	}
	cmd.Flags().BoolVar(&verify, "verify", false, "validate every chunk in the pack")
	return cmd
}

func runInspect(out io.Writer, path string, verify bool) error {
	pack, err := assetpack.Load(path, assetpack.NewRegistry(nil))
	if err != nil {
		return err
	}
	defer pack.Close()

	f := pack.File()
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s: %s v%d, build %d, %s\n", path, string(f.Header.Magic[:]), f.Header.Version, f.Header.BuildVersion, humanize.Bytes(uint64(info.Size())))
	fmt.Fprintf(out, "app binary: offset %d, %s\n", f.Index.AppBinaryOffset, humanize.Bytes(f.Index.AppBinarySize))
	fmt.Fprintf(out, "%d scenes, %d unique assets\n", len(f.Index.Scenes), f.UniqueAssets())

	for _, sh := range f.SceneHandles() {
		si := f.Index.Scenes[sh]
		fmt.Fprintf(out, "scene %s  offset %d  %s  %d assets\n", sh, si.PackedOffset, humanize.Bytes(si.PackedSize), len(si.Assets))
		handles := si.AssetHandles()
		sort.SliceStable(handles, func(i, j int) bool {
			return si.Assets[handles[i]].PackedOffset < si.Assets[handles[j]].PackedOffset
		})
		for _, ah := range handles {
			ai := si.Assets[ah]
			size := humanize.Bytes(ai.PackedSize)
			if ai.PackedSize == 0 {
				size = "MISSING"
			}
			fmt.Fprintf(out, "  %-20s %-12s offset %-10d %s\n", ah, ai.AssetType(), ai.PackedOffset, size)
		}
	}

	if !verify {
		return nil
	}
	issues := pack.Verify()
	for _, issue := range issues {
		fmt.Fprintln(out, issue.String())
	}
	if len(issues) > 0 {
		return fmt.Errorf("%d chunks failed verification", len(issues))
	}
	fmt.Fprintln(out, "all chunks verified")
	return nil
}

func newExtractAppCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "extract-app <pack>",
		Short: "Write the app binary embedded in an asset pack",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pack, err := assetpack.Load(args[0], assetpack.NewRegistry(nil))
			if err != nil {
				return err
			}
			defer pack.Close()
			data, err := pack.ReadAppBinary()
			if err != nil {
				return err
			}
			if len(data) == 0 {
				return fmt.Errorf("%s carries no app binary", args[0])
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s to %s\n", humanize.Bytes(uint64(len(data))), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "app.bin", "output file")
	return cmd
}

func newRunCommand(logLevel *string) *cobra.Command {
	var (
		packPath string
		frames   uint64
		fps      float64
		strict   bool
	)
	cmd := &cobra.Command{
		Use:   "run <project-file>",
		Short: "Boot the runtime headless from a project's asset pack",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := core.ParseLogLevel(*logLevel)
			if err != nil {
				return err
			}
			config := &engine.ApplicationConfig{
				Name:            "Epoch Testbed",
				LogLevel:        level,
				ProjectPath:     args[0],
				AssetPackPath:   packPath,
				TargetFrameRate: fps,
				MaxFrames:       frames,
			}
			if strict {
				config.LoadMode = assetpack.LoadModeStrict
			}
			return runEngine(testbed.NewTestGame(config).Game)
		},
	}
	cmd.Flags().StringVar(&packPath, "pack", "", "asset pack to load (default: the project's pack)")
	cmd.Flags().Uint64Var(&frames, "frames", 120, "number of frames to run, 0 runs until interrupted")
	cmd.Flags().Float64Var(&fps, "fps", 60, "target frame rate")
	cmd.Flags().BoolVar(&strict, "strict", false, "treat the first corrupt chunk as a corrupt pack")
	return cmd
}
