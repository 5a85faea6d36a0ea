package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/kart-coupons/internal/domain/coupon"
)

const maxLineBytes = 1 << 20

// position identifies a line of an input file.
type position struct {
	File string
	Line int
}

func (p position) String() string { return fmt.Sprintf("%s:%d", p.File, p.Line) }

// record is a validated coupon and the line it came from.
type record struct {
	Coupon coupon.Coupon
	Pos    position
}

// readFiles decodes every file concurrently and merges the results ordered
// by coupon id. An id defined twice, in one file or across files, is an
// error.
func readFiles(ctx context.Context, files []string) ([]record, error) {
	results := make([][]record, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			recs, err := readFile(ctx, path)
			if err != nil {
				return err
			}
			slog.Info("file decoded", slog.String("file", path), slog.Int("coupons", len(recs)))
			results[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[int64]position)
	var merged []record
	for _, recs := range results {
		for _, rec := range recs {
			if prev, ok := seen[rec.Coupon.ID]; ok {
				return nil, errors.Errorf("duplicate coupon id %d at %s and %s", rec.Coupon.ID, prev, rec.Pos)
			}
			seen[rec.Coupon.ID] = rec.Pos
			merged = append(merged, rec)
		}
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Coupon.ID < merged[j].Coupon.ID })
	return merged, nil
}

// readFile decodes one JSON Lines file. Files ending in .gz are
// decompressed with pgzip. Blank lines are skipped.
func readFile(ctx context.Context, path string) ([]record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	var out []record
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	pos := position{File: path}
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pos.Line++
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		c, err := decodeLine(line)
		if err != nil {
			return nil, errors.Wrapf(err, "%s", pos)
		}
		out = append(out, record{Coupon: c, Pos: pos})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "scan %s", path)
	}
	return out, nil
}

// decodeLine reads {"id": n, "type": "...", "details": {...}}.
func decodeLine(line []byte) (coupon.Coupon, error) {
	var (
		id    int64
		hasID bool
		in    coupon.Input
	)
	d := jx.DecodeBytes(line)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "id":
			v, err := d.Int64()
			if err != nil {
				return errors.Wrap(err, "id")
			}
			id, hasID = v, true
		case "type":
			v, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "type")
			}
			in.Type = v
		case "details":
			raw, err := d.Raw()
			if err != nil {
				return errors.Wrap(err, "details")
			}
			in.Details = append([]byte(nil), raw...)
		default:
			return d.Skip()
		}
		return nil
	}); err != nil {
		return coupon.Coupon{}, errors.Wrap(err, "decode")
	}
	if !hasID || id <= 0 {
		return coupon.Coupon{}, errors.New("id must be a positive integer")
	}

	t, details, err := in.Parse()
	if err != nil {
		return coupon.Coupon{}, err
	}
	return coupon.Coupon{ID: id, Type: t, Details: details}, nil
}
