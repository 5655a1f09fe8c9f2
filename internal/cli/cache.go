package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/roach88/typeref/internal/ir"
	"github.com/roach88/typeref/internal/refcache"
	"github.com/roach88/typeref/internal/store"
)

// CacheOptions holds flags for the cache command.
type CacheOptions struct {
	*RootOptions
	Database string // path to SQLite database
	Workers  int
	Prune    bool // drop rows of other snapshots
}

// CacheReport summarizes a cache warm-up.
type CacheReport struct {
	Snapshot   string `json:"snapshot"`
	Types      int    `json:"types"`
	Pointers   int    `json:"pointers"`
	Builds     int64  `json:"builds"`
	StoreHits  int64  `json:"store_hits"`
	StoredType int    `json:"stored_types"`
	StoredPtr  int    `json:"stored_pointers"`
	Pruned     int64  `json:"pruned"`
	Stale      int64  `json:"stale"` // rows of another IR version dropped on open
}

func (r CacheReport) String() string {
	s := fmt.Sprintf("snapshot %s: %d types, %d pointer traversals (%d built, %d from store)\nstored: %d type refs, %d pointer refs",
		r.Snapshot, r.Types, r.Pointers, r.Builds, r.StoreHits, r.StoredType, r.StoredPtr)
	if r.Pruned > 0 {
		s += fmt.Sprintf("\npruned: %d rows", r.Pruned)
	}
	if r.Stale > 0 {
		s += fmt.Sprintf("\ndropped %d rows of another IR version", r.Stale)
	}
	return s
}

// NewCacheCommand creates the cache command.
func NewCacheCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CacheOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "cache <schema-dir>",
		Short: "Warm the persistent reference cache for a schema",
		Long: `Build the reference for every type and for every pointer in both
directions and store them in a SQLite database keyed by the schema's
snapshot version. References already stored for the same snapshot are
read back instead of rebuilt.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCache(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().IntVar(&opts.Workers, "workers", runtime.GOMAXPROCS(0), "maximum concurrent builds")
	cmd.Flags().BoolVar(&opts.Prune, "prune", false, "delete references stored for other snapshots")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runCache(opts *CacheOptions, schemaDir string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	logger := f.Logger()
	ctx := cmd.Context()

	s, err := loadOrReport(f, schemaDir)
	if err != nil {
		return err
	}
	logger.Info("schema loaded", "dir", schemaDir, "snapshot", s.Version())

	logger.Info("opening database", "path", opts.Database)
	st, err := store.Open(opts.Database)
	if err != nil {
		return reportCommandError(f, ErrCodeStore, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()
	if n := st.Purged(); n > 0 {
		logger.Info("dropped stale references", "rows", n, "ir_version", ir.IRVersion)
	}

	c := refcache.New(s, refcache.WithStore(st), refcache.WithLogger(logger))
	res, err := c.Warm(ctx, s.Types(), s.Pointers(), opts.Workers)
	if err != nil {
		return reportCommandError(f, ErrCodeStore, "failed to warm cache", err)
	}

	report := CacheReport{
		Snapshot: s.Version(),
		Types:    res.Types,
		Pointers: res.Pointers,
		Stale:    st.Purged(),
	}
	stats := c.Stats()
	report.Builds = stats.Builds
	report.StoreHits = stats.StoreHits

	if opts.Prune {
		n, err := st.PruneSnapshots(ctx, s.Version())
		if err != nil {
			return reportCommandError(f, ErrCodeStore, "failed to prune database", err)
		}
		report.Pruned = n
		logger.Info("pruned stale snapshots", "rows", n)
	}

	counts, err := st.CountRefs(ctx, s.Version())
	if err != nil {
		return reportCommandError(f, ErrCodeStore, "failed to count stored references", err)
	}
	report.StoredType = counts[store.KindType]
	report.StoredPtr = counts[store.KindPointer]

	return f.SuccessFor(s.Version(), report)
}
