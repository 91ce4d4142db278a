package main

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/molino-storefront/internal/domain/menu"
	"github.com/xenking/molino-storefront/internal/oas"
)

const snapshotName = "menu.json.gz"

var unsafeName = regexp.MustCompile(`[^a-z0-9]+`)

// writeSnapshot writes the full menu to dir and, when byCategory is set, one
// file per category concurrently. It returns the written paths, full menu
// first.
func writeSnapshot(ctx context.Context, dir string, m *menu.Menu, byCategory bool) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create output dir")
	}

	paths := []string{filepath.Join(dir, snapshotName)}
	docs := []*menu.Menu{m}
	if byCategory {
		for _, c := range m.Categories {
			paths = append(paths, filepath.Join(dir, "menu-"+slug(c.Name, c.ID)+".json.gz"))
			docs = append(docs, m.Filter(c.ID))
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return writeFile(paths[i], oas.NewMenu(docs[i]))
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

func writeFile(path string, doc oas.Encoder) (rerr error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer func() {
		if err := f.Close(); err != nil && rerr == nil {
			rerr = errors.Wrapf(err, "close %s", path)
		}
	}()

	gz := pgzip.NewWriter(f)
	if _, err := gz.Write(oas.Marshal(doc)); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	if err := gz.Close(); err != nil {
		return errors.Wrapf(err, "flush %s", path)
	}
	return nil
}

func slug(name, fallback string) string {
	s := strings.Trim(unsafeName.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if s == "" {
		return fallback
	}
	return s
}

type categoryCount struct {
	ID    string
	Name  string
	Items int
}

type summary struct {
	Items      int
	Categories []categoryCount
}

// readSummary counts items per category in a snapshot file. Items without a
// category are counted in the total only.
func readSummary(path string) (*summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(bufio.NewReader(f))
	if err != nil {
		return nil, errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	s, err := decodeSummary(gz)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	return s, nil
}

func decodeSummary(r io.Reader) (*summary, error) {
	var (
		s      summary
		counts = map[string]int{}
	)
	d := jx.Decode(r, 4096)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "items":
			return d.Arr(func(d *jx.Decoder) error {
				s.Items++
				return d.Obj(func(d *jx.Decoder, key string) error {
					if key != "category_id" {
						return d.Skip()
					}
					id, err := d.Str()
					counts[id]++
					return err
				})
			})
		case "categories":
			return d.Arr(func(d *jx.Decoder) error {
				var c categoryCount
				if err := d.Obj(func(d *jx.Decoder, key string) error {
					var err error
					switch key {
					case "id":
						c.ID, err = d.Str()
					case "name":
						c.Name, err = d.Str()
					default:
						err = d.Skip()
					}
					return err
				}); err != nil {
					return err
				}
				s.Categories = append(s.Categories, c)
				return nil
			})
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return nil, err
	}
	for i := range s.Categories {
		s.Categories[i].Items = counts[s.Categories[i].ID]
	}
	return &s, nil
}
