package forest

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"io/ioutil"
	"os"

	"github.com/mholt/archiver"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/pbanos/grove/tree"
)

var gzipMagic = []byte{0x1f, 0x8b}

/*
Export is the text of a tree export read from an archive entry
along with the name of the entry.
*/
type Export struct {
	Name string
	Data []byte
}

/*
ReadExports takes a context, an io.Reader with an archive and a logger
and returns the contents of the non directory entries of the archive,
in entry order. The archive is a tar file, optionally gzip-compressed,
which is detected from its first bytes.
*/
func ReadExports(ctx context.Context, r io.Reader, logger *zap.Logger) ([]*Export, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	br := bufio.NewReader(r)
	var ar archiver.Reader = archiver.NewTar()
	if magic, err := br.Peek(len(gzipMagic)); err == nil && bytes.Equal(magic, gzipMagic) {
		ar = archiver.NewTarGz()
	}
	if err := ar.Open(br, 0); err != nil {
		return nil, errors.Wrap(err, "opening forest archive")
	}
	defer ar.Close()

	var exports []*Export
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f, err := ar.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "reading forest archive")
		}
		if f.IsDir() {
			f.Close()
			continue
		}
		logger.Debug("reading archive entry", zap.String("entry", f.Name()), zap.Int64("size", f.Size()))
		data, err := ioutil.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "reading archive entry %s", f.Name())
		}
		exports = append(exports, &Export{Name: f.Name(), Data: data})
	}
	return exports, nil
}

/*
Read takes a context, an io.Reader with an archive of tree exports, a
decoder for their class values and options for the forest. It returns
a forest with a tree per non directory entry of the archive, in entry
order. The archive is a tar file, optionally gzip-compressed.
*/
func Read[T comparable](ctx context.Context, r io.Reader, dec tree.Decoder[T], opts ...Option) (*Forest[T], error) {
	o := &options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}
	exports, err := ReadExports(ctx, r, o.logger)
	if err != nil {
		return nil, err
	}
	trees := make([]*tree.Tree[T], len(exports))
	for i, e := range exports {
		trees[i], err = tree.Parse(bytes.NewReader(e.Data), dec)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing archive entry %s", e.Name)
		}
	}
	o.logger.Debug("forest archive read", zap.Int("trees", len(trees)))
	return New(trees, opts...)
}

// ReadFile reads a forest from the archive at the given path
func ReadFile[T comparable](ctx context.Context, path string, dec tree.Decoder[T], opts ...Option) (*Forest[T], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading forest from %s", path)
	}
	defer f.Close()
	forest, err := Read(ctx, f, dec, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "reading forest from %s", path)
	}
	return forest, nil
}
