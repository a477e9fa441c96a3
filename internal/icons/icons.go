// Package icons resolves and caches the small row icons (play / pause).
package icons

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sync"

	"soundslot/internal/codec"
	"soundslot/pkg/spec"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

var ErrUnknownIcon = errors.New("unknown icon")

// Icon is a resolved bitmap.
type Icon struct {
	Name  string
	Image image.Image
}

// Cache holds resolved icons. Misses are resolved on a background goroutine;
// concurrent loads of the same name share one resolution.
type Cache struct {
	mu     sync.RWMutex
	images map[string]Icon
	group  singleflight.Group

	dir  string
	size int
	log  zerolog.Logger
}

// NewCache creates an icon cache. PNG/JPEG files named <icon>.png in dir
// override the built-in glyphs; dir may be empty.
func NewCache(dir string, size int, log zerolog.Logger) *Cache {
	if size <= 0 {
		size = spec.IconSize
	}
	return &Cache{images: make(map[string]Icon), dir: dir, size: size, log: log}
}

// Cached returns the icon if it is already resolved.
func (c *Cache) Cached(name string) (Icon, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ic, ok := c.images[name]
	return ic, ok
}

// Load resolves name asynchronously and calls onResolved from another goroutine.
func (c *Cache) Load(name string, onResolved func(Icon, error)) {
	go func() {
		ic, err := c.resolve(name)
		if onResolved != nil {
			onResolved(ic, err)
		}
	}()
}

// Preload resolves names synchronously.
func (c *Cache) Preload(names ...string) error {
	for _, n := range names {
		if _, err := c.resolve(n); err != nil {
			return err
		}
	}
	return nil
}

func (c *Cache) resolve(name string) (Icon, error) {
	if ic, ok := c.Cached(name); ok {
		return ic, nil
	}
	v, err, _ := c.group.Do(name, func() (interface{}, error) {
		img, err := c.render(name)
		if err != nil {
			return Icon{}, err
		}
		ic := Icon{Name: name, Image: img}
		c.mu.Lock()
		c.images[name] = ic
		c.mu.Unlock()
		c.log.Debug().Str("icon", name).Msg("icon resolved")
		return ic, nil
	})
	if err != nil {
		return Icon{}, err
	}
	return v.(Icon), nil
}

func (c *Cache) render(name string) (image.Image, error) {
	if c.dir != "" {
		f, err := os.Open(filepath.Join(c.dir, name+".png"))
		if err == nil {
			defer f.Close()
			img, err := codec.DecodeSquare(f, c.size)
			if err != nil {
				return nil, fmt.Errorf("decode icon %s: %w", name, err)
			}
			return img, nil
		}
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	switch name {
	case spec.IconPlay:
		return playGlyph(c.size), nil
	case spec.IconPause:
		return pauseGlyph(c.size), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownIcon, name)
}

var ink = color.RGBA{R: 0x1c, G: 0xb5, B: 0xd6, A: 0xff}

func playGlyph(size int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	pad := size / 5
	h := size - 2*pad
	for y := 0; y < h; y++ {
		// right-pointing triangle: row width peaks at the vertical center
		d := y
		if y > h/2 {
			d = h - 1 - y
		}
		for x := 0; x <= d*2 && pad+x < size-pad; x++ {
			img.Set(pad+x, pad+y, ink)
		}
	}
	return img
}

func pauseGlyph(size int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	pad := size / 5
	bar := (size - 2*pad) / 3
	for y := pad; y < size-pad; y++ {
		for x := 0; x < bar; x++ {
			img.Set(pad+x, y, ink)
			img.Set(size-pad-bar+x, y, ink)
		}
	}
	return img
}
