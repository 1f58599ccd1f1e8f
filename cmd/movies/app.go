package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/Clark-Hu/movie-browser/internal/domain"
	"github.com/Clark-Hu/movie-browser/internal/favorites"
	"github.com/Clark-Hu/movie-browser/internal/moviesapi"
	"github.com/Clark-Hu/movie-browser/internal/storage"
	"github.com/Clark-Hu/movie-browser/internal/tmdb"
)

const usage = `usage: movies [flags] <command> [args]

commands:
  popular [page]          list popular movies
  search <query> [page]   search movies by title
  details <id>            print the full detail record
  fav list                list favorites
  fav toggle <id>         add or remove a favorite
  fav remove <id>         remove a favorite

flags:
`

var errUsage = errors.New("invalid usage")

type app struct {
	api       *moviesapi.Client
	favorites *favorites.Store
	out       io.Writer
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("movies", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		apiURL  = fs.String("api", "http://localhost:8080", "base URL of the movies API")
		dataDir = fs.String("data", defaultDataDir(), "directory holding local favorites")
		verbose = fs.Bool("v", false, "log storage activity")
	)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	logger := log.New(io.Discard, "", 0)
	if *verbose {
		logger = log.New(stderr, "[movies] ", log.LstdFlags)
	}

	api, err := moviesapi.New(*apiURL, moviesapi.DefaultTimeout)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	st, err := storage.NewFile(*dataDir, logger)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	favs := favorites.New(st, favorites.Options{Logger: logger})
	favs.Initialize(ctx)

	a := &app{api: api, favorites: favs, out: stdout}
	if err := a.dispatch(ctx, fs.Args()); err != nil {
		if errors.Is(err, errUsage) {
			fs.Usage()
			return 2
		}
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func (a *app) dispatch(ctx context.Context, args []string) error {
	switch args[0] {
	case "popular":
		page, err := optionalPage(args[1:])
		if err != nil {
			return err
		}
		result, err := a.api.GetPopularMovies(ctx, page)
		if err != nil {
			return err
		}
		return a.printPage(result)
	case "search":
		if len(args) < 2 {
			return errUsage
		}
		page, err := optionalPage(args[2:])
		if err != nil {
			return err
		}
		result, err := a.api.SearchMovies(ctx, args[1], page)
		if err != nil {
			return err
		}
		return a.printPage(result)
	case "details":
		id, err := movieID(args[1:])
		if err != nil {
			return err
		}
		details, err := a.api.GetMovieDetails(ctx, id)
		if err != nil {
			return err
		}
		var pretty strings.Builder
		enc := json.NewEncoder(&pretty)
		enc.SetIndent("", "  ")
		var v interface{}
		if err := json.Unmarshal(details, &v); err != nil {
			return err
		}
		if err := enc.Encode(v); err != nil {
			return err
		}
		_, err = io.WriteString(a.out, pretty.String())
		return err
	case "fav":
		return a.favoritesCommand(ctx, args[1:])
	}
	return errUsage
}

func (a *app) favoritesCommand(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "list":
		return a.printMovies(a.favorites.Favorites())
	case "toggle":
		id, err := movieID(args[1:])
		if err != nil {
			return err
		}
		if a.favorites.IsFavorite(id) {
			a.favorites.Remove(ctx, id)
			fmt.Fprintf(a.out, "removed %d from favorites\n", id)
			return nil
		}
		details, err := a.api.GetMovieDetails(ctx, id)
		if err != nil {
			return err
		}
		var movie domain.Movie
		if err := json.Unmarshal(details, &movie); err != nil {
			return fmt.Errorf("decode movie %d: %w", id, err)
		}
		a.favorites.Add(ctx, movie)
		fmt.Fprintf(a.out, "added %q to favorites\n", movie.Title)
		return nil
	case "remove":
		id, err := movieID(args[1:])
		if err != nil {
			return err
		}
		if a.favorites.Remove(ctx, id) {
			fmt.Fprintf(a.out, "removed %d from favorites\n", id)
		} else {
			fmt.Fprintf(a.out, "%d is not a favorite\n", id)
		}
		return nil
	}
	return errUsage
}

func (a *app) printPage(result *domain.PageResult) error {
	if err := a.printMovies(result.Results); err != nil {
		return err
	}
	_, err := fmt.Fprintf(a.out, "page %d of %d (%d results)\n", result.Page, result.TotalPages, result.TotalResults)
	return err
}

func (a *app) printMovies(movies []domain.Movie) error {
	if len(movies) == 0 {
		_, err := fmt.Fprintln(a.out, "no movies")
		return err
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\tID\tTITLE\tYEAR\tRATING\tPOSTER")
	for _, m := range movies {
		mark := ""
		if a.favorites.IsFavorite(m.ID) {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%.1f\t%s\n", mark, m.ID, m.Title, releaseYear(m.ReleaseDate), m.VoteAverage, tmdb.PosterURL(m.PosterPath, "w185"))
	}
	return tw.Flush()
}

func releaseYear(date *string) string {
	if date == nil || len(*date) < 4 {
		return "-"
	}
	return (*date)[:4]
}

func optionalPage(args []string) (int, error) {
	if len(args) == 0 {
		return 1, nil
	}
	page, err := strconv.Atoi(args[0])
	if err != nil || page < 1 {
		return 0, fmt.Errorf("invalid page %q", args[0])
	}
	return page, nil
}

func movieID(args []string) (int, error) {
	if len(args) == 0 {
		return 0, errUsage
	}
	id, err := strconv.Atoi(args[0])
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid movie id %q", args[0])
	}
	return id, nil
}
