package main

import (
	"fmt"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/featureio/featurereader"
	"v.io/x/lib/cmdline"
)

func newCmdView() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "view",
		Short:    "Print the records of a feature file",
		ArgsName: "path",
	}
	var opts viewOpts
	cmd.Flags.StringVar(&opts.index, "index", "", "Index location. By default, path + .tbi for block-compressed files and path + .idx otherwise")
	cmd.Flags.BoolVar(&opts.requireIndex, "require-index", false, "Fail if the index is missing or does not match the data file")
	cmd.Flags.BoolVar(&opts.header, "header", false, "Print the header before the records")
	cmd.Flags.BoolVar(&opts.headerOnly, "header-only", false, "Print only the header")
	cmd.Flags.StringVar(&opts.output, "o", "", "Output path. By default, records are written to stdout")
	cmd.Flags.StringVar(&opts.regions, "regions", "", `A list of regions separated by ';' or spaces.
Each region is 'chr', 'chr:pos' or 'chr:begin-end', where [begin,end] is a
1-based closed interval, e.g. '20:14,000-18,000'. Requires an index.`)
	cmd.Flags.StringVar(&opts.bed, "bed", "", "BED file of additional regions to show, read after -regions")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return fmt.Errorf("view takes one pathname argument, but got %v", argv)
		}
		return view(env.Stdout, argv[0], opts)
	})
	return cmd
}

func newCmdIndex() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "index",
		Short:    "Build indexes for feature files",
		ArgsName: "path...",
	}
	var (
		opts        featurereader.IndexOpts
		kind        string
		parallelism int
	)
	cmd.Flags.StringVar(&kind, "kind", "", `Index kind: "linear", "tree" or "tabix".
By default, tabix for block-compressed files and linear otherwise.`)
	cmd.Flags.IntVar(&opts.BinWidth, "bin-width", 0, "Bin width of a linear index. 0 selects the default")
	cmd.Flags.IntVar(&opts.FeaturesPerInterval, "features-per-interval", 0, "Records per node of an interval-tree index. 0 selects the default")
	cmd.Flags.StringVar(&opts.Output, "o", "", "Output path. Only valid with a single input path")
	cmd.Flags.IntVar(&parallelism, "parallelism", 0, "Number of files indexed concurrently. 0 means one per CPU")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) == 0 {
			return fmt.Errorf("index takes at least one pathname argument")
		}
		if opts.Output != "" && len(argv) > 1 {
			return fmt.Errorf("-o requires exactly one input path, but got %v", argv)
		}
		opts.Kind = featurereader.IndexKind(kind)
		return index(argv, opts, parallelism)
	})
	return cmd
}

func newCmdBgzip() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "bgzip",
		Short:    "Block-compress a feature file",
		ArgsName: "path",
	}
	var opts bgzipOpts
	cmd.Flags.StringVar(&opts.output, "o", "", "Output path. By default, path + .gz")
	cmd.Flags.IntVar(&opts.level, "level", -1, "gzip compression level")
	cmd.Flags.BoolVar(&opts.index, "index", false, "Also write a tabix index for the output")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return fmt.Errorf("bgzip takes one pathname argument, but got %v", argv)
		}
		return bgzip(argv[0], opts)
	})
	return cmd
}

func newCmdChecksum() *cmdline.Command {
	cmd := &cmdline.Command{
		Name: "checksum",
		Short: `Compute a checksum of a feature file.
The checksum is a JSON list with the record count and a hash of the records of each contig`,
		ArgsName: "path",
	}
	var opts checksumOpts
	cmd.Flags.BoolVar(&opts.useIndex, "use-index", false, "Read the contigs listed in the index concurrently")
	cmd.Flags.IntVar(&opts.parallelism, "parallelism", 0, "Number of contigs read concurrently with -use-index. 0 means one per CPU")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return fmt.Errorf("checksum takes a path, but found %v", argv)
		}
		return checksum(env.Stdout, argv[0], opts)
	})
	return cmd
}

func newCmdRoot() *cmdline.Command {
	return &cmdline.Command{
		Name:     "bio-feature",
		Short:    "Tools for working with interval-indexed feature files",
		LookPath: false,
		Children: []*cmdline.Command{
			newCmdView(),
			newCmdIndex(),
			newCmdBgzip(),
			newCmdChecksum(),
		},
	}
}

func main() {
	cmdline.HideGlobalFlagsExcept()
	cmdline.Main(newCmdRoot())
}
