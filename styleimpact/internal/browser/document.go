package browser

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/hazyhaar/styleimpact/document"
)

//go:embed arena.js
var arenaJS string

// callJS dispatches to the installed arena and returns its JSON-encoded
// result. Promises are awaited.
const callJS = `async (method, args) => JSON.stringify(await window.__styleimpact[method](...args))`

// Document is a document.Document backed by one Chrome page. Element handles
// live in a JS-side arena installed on the page.
type Document struct {
	page   *rod.Page
	router *rod.HijackRouter
	mgr    *Manager
	height int
	logger *slog.Logger
}

// Open navigates a new page to url and installs the element arena.
func Open(ctx context.Context, mgr *Manager, url string) (*Document, error) {
	d, err := openPage(ctx, mgr)
	if err != nil {
		return nil, err
	}
	navCtx, cancel := context.WithTimeout(ctx, mgr.cfg.NavigateTimeout)
	defer cancel()
	if err := d.page.Context(navCtx).Navigate(url); err != nil {
		d.Close()
		return nil, fmt.Errorf("browser: navigate %s: %w", url, err)
	}
	if err := d.page.Context(navCtx).WaitLoad(); err != nil {
		d.logger.Warn("browser: wait load timeout", "url", url, "error", err)
	}
	if err := d.install(ctx); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

func openPage(ctx context.Context, mgr *Manager) (*Document, error) {
	b, err := mgr.acquire(ctx)
	if err != nil {
		return nil, err
	}
	cfg := mgr.cfg

	var page *rod.Page
	if cfg.Stealth >= LevelHeadless {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		mgr.release()
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	d := &Document{page: page, mgr: mgr, height: cfg.ViewportHeight, logger: cfg.Logger}
	if set := blockSet(cfg.ResourceBlocking); len(set) > 0 {
		d.router = applyResourceBlocking(page, set)
	}
	if err := d.setViewport(ctx, cfg.ViewportWidth); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

func (d *Document) install(ctx context.Context) error {
	if _, err := d.page.Context(ctx).Eval(arenaJS); err != nil {
		return fmt.Errorf("browser: install arena: %w", err)
	}
	return nil
}

// Close closes the page and returns it to the manager.
func (d *Document) Close() error {
	if d.page == nil {
		return nil
	}
	if d.router != nil {
		d.router.Stop()
	}
	err := d.page.Close()
	d.page = nil
	d.mgr.release()
	return err
}

// call invokes an arena method and decodes its result into out.
func (d *Document) call(ctx context.Context, out any, method string, args ...any) error {
	if args == nil {
		args = []any{}
	}
	res, err := d.page.Context(ctx).Eval(callJS, method, args)
	if err != nil {
		return fmt.Errorf("browser: %s: %w", method, err)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal([]byte(res.Value.Str()), out); err != nil {
		return fmt.Errorf("browser: %s: decode: %w", method, err)
	}
	return nil
}

func (d *Document) setViewport(ctx context.Context, width int) error {
	err := proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            d.height,
		DeviceScaleFactor: 1,
	}.Call(d.page.Context(ctx))
	if err != nil {
		return fmt.Errorf("browser: viewport %dx%d: %w", width, d.height, err)
	}
	return nil
}

// --- document.Document ---

func (d *Document) QuerySelectorAll(ctx context.Context, selector string) ([]document.Element, error) {
	var out []document.Element
	if err := d.call(ctx, &out, "query", selector); err != nil {
		return nil, err
	}
	return out, nil
}

func (d *Document) ComputedStyle(ctx context.Context, el document.Element) (document.StyleObject, error) {
	out, err := d.ComputedStyles(ctx, []document.Element{el})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// ComputedStyles implements document.BatchStyler.
func (d *Document) ComputedStyles(ctx context.Context, els []document.Element) ([]document.StyleObject, error) {
	var out []document.StyleObject
	if err := d.call(ctx, &out, "styles", els); err != nil {
		return nil, err
	}
	if len(out) != len(els) {
		return nil, fmt.Errorf("browser: styles: got %d results for %d elements", len(out), len(els))
	}
	return out, nil
}

func (d *Document) SourceActive(ctx context.Context, id document.SourceID) (bool, error) {
	var ok bool
	err := d.call(ctx, &ok, "active", string(id))
	return ok, err
}

// ActivateSource links the stylesheet and waits for its load or error
// event. A failed load is logged; the source then has no sheet.
func (d *Document) ActivateSource(ctx context.Context, id document.SourceID) error {
	start := time.Now()
	var loaded bool
	if err := d.call(ctx, &loaded, "activate", string(id)); err != nil {
		return err
	}
	if !loaded {
		d.logger.Warn("browser: stylesheet failed to load", "source", id)
		return nil
	}
	d.logger.Debug("browser: stylesheet loaded", "source", id, "duration", time.Since(start))
	return nil
}

func (d *Document) DeactivateSource(ctx context.Context, id document.SourceID) error {
	return d.call(ctx, nil, "deactivate", string(id))
}

type wireSheet struct {
	Key   string          `json:"key"`
	Rules []document.Rule `json:"rules"`
}

func (d *Document) SourceSheet(ctx context.Context, id document.SourceID) (document.Stylesheet, bool, error) {
	var ws *wireSheet
	if err := d.call(ctx, &ws, "sheet", string(id)); err != nil {
		return document.Stylesheet{}, false, err
	}
	if ws == nil {
		return document.Stylesheet{}, false, nil
	}
	return document.Stylesheet{Key: ws.Key, Rules: ws.Rules}, true, nil
}

func (d *Document) NextFrame(ctx context.Context) error {
	return d.call(ctx, nil, "frame")
}

func (d *Document) Resize(ctx context.Context, width int) error {
	if width <= 0 {
		return fmt.Errorf("browser: invalid width %d", width)
	}
	return d.setViewport(ctx, width)
}

func (d *Document) Describe(ctx context.Context, el document.Element) (string, error) {
	var path string
	err := d.call(ctx, &path, "describe", el)
	return path, err
}

func (d *Document) Release(ctx context.Context) error {
	var n int
	if err := d.call(ctx, &n, "release"); err != nil {
		return err
	}
	d.logger.Debug("browser: arena released", "handles", n)
	return nil
}
