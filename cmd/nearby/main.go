// Command nearby prints verified relief resources around the caller.
//
// Coordinates given with -lat/-lon are used as the device position;
// without them the lookup falls back to -fallback-lat/-fallback-lon.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/shenikar/relief_locator/internal/geo"
	v1 "github.com/shenikar/relief_locator/internal/handler/http/v1"
	"github.com/shenikar/relief_locator/internal/location"
	"github.com/shenikar/relief_locator/internal/models"
	"github.com/shenikar/relief_locator/internal/service"
	"github.com/shenikar/relief_locator/pkg/logger"
	"github.com/sirupsen/logrus"
)

type options struct {
	apiURL      string
	lat, lon    float64
	hasPosition bool
	fallback    geo.Coordinate
	maxKm       float64
	typ         string
	status      string
	search      string
	timeout     time.Duration
	retries     int
	logLevel    string
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("nearby", flag.ContinueOnError)
	fs.StringVar(&o.apiURL, "api", "http://localhost:8080/api/v1", "API base URL")
	fs.Float64Var(&o.lat, "lat", 0, "device latitude")
	fs.Float64Var(&o.lon, "lon", 0, "device longitude")
	fs.Float64Var(&o.fallback.Latitude, "fallback-lat", location.DefaultFallback.Latitude, "latitude used when no position is available")
	fs.Float64Var(&o.fallback.Longitude, "fallback-lon", location.DefaultFallback.Longitude, "longitude used when no position is available")
	fs.Float64Var(&o.maxKm, "max", 0, "search radius in km (server default when 0)")
	fs.StringVar(&o.typ, "type", "", "resource type filter")
	fs.StringVar(&o.status, "status", "", "status filter: open, closed or full")
	fs.StringVar(&o.search, "search", "", "text filter")
	fs.DurationVar(&o.timeout, "timeout", location.DefaultTimeout, "position and request timeout")
	fs.IntVar(&o.retries, "retries", 3, "retries for failed requests")
	fs.StringVar(&o.logLevel, "log-level", "warn", "log level")
	if err := fs.Parse(args); err != nil {
		return o, err
	}

	var latSet, lonSet bool
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "lat":
			latSet = true
		case "lon":
			lonSet = true
		}
	})
	if latSet != lonSet {
		return o, fmt.Errorf("-lat and -lon must be given together")
	}
	o.hasPosition = latSet
	return o, nil
}

func main() {
	o, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.NewWithOutput(o.logLevel, os.Stderr)
	if err := run(ctx, o, log, os.Stdout); err != nil {
		log.WithError(err).Error("Nearby lookup failed")
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, o options, log *logrus.Logger, out io.Writer) error {
	var source location.Source = location.Unsupported{}
	if o.hasPosition {
		source = location.StaticSource{Coordinate: geo.Coordinate{Latitude: o.lat, Longitude: o.lon}}
	}

	acq := location.NewAcquirer(source, o.fallback, location.Options{Timeout: o.timeout, HighAccuracy: true}, log)
	acq.Start(ctx)
	defer acq.Stop()

	waitCtx, cancel := context.WithTimeout(ctx, o.timeout+time.Second)
	defer cancel()
	snap, err := acq.Wait(waitCtx)
	if err != nil {
		return fmt.Errorf("acquire position: %w", err)
	}

	query := service.NearbyQuery{
		Center:        snap.Coordinate,
		MaxDistanceKm: o.maxKm,
		Filters: service.Filters{
			Type:       models.ResourceType(o.typ),
			Status:     models.ResourceStatus(o.status),
			SearchText: o.search,
		},
	}

	client := newAPIClient(o.apiURL, o.timeout, o.retries, log)
	result, err := client.nearby(ctx, query)
	if err != nil {
		return err
	}

	printResults(out, snap, result)
	return nil
}

func printResults(out io.Writer, snap location.Snapshot, result *v1.NearbyResponse) {
	origin := string(snap.Origin)
	if snap.Reason != location.ReasonNone {
		origin += " (" + string(snap.Reason) + ")"
	}
	fmt.Fprintf(out, "Around %.4f, %.4f [%s] within %g km: %d found\n",
		result.Latitude, result.Longitude, origin, result.MaxDistanceKm, result.Count)
	if result.Count == 0 {
		return
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DIST KM\tNAME\tTYPE\tSTATUS\tAVAILABLE\tCONTACT\tADDRESS")
	for _, r := range result.Resources {
		fmt.Fprintf(tw, "%.2f\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.DistanceKm, r.Name, r.Type, r.Status, slots(r.AvailableCapacity, r.Capacity), r.Contact, r.Address)
	}
	_ = tw.Flush()
}

func slots(available, capacity *int) string {
	if capacity == nil {
		return "-"
	}
	if available == nil {
		return "?/" + strconv.Itoa(*capacity)
	}
	return strconv.Itoa(*available) + "/" + strconv.Itoa(*capacity)
}
