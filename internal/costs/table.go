package costs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"sentra/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// SymbolRates 描述单个交易对的滑点与点差，单位为百分比。
type SymbolRates struct {
	SlippagePct float64 `yaml:"slippage_pct" json:"slippage_pct"`
	SpreadPct   float64 `yaml:"spread_pct" json:"spread_pct"`
}

// Table maps symbols to their execution-cost rates.
type Table struct {
	Default SymbolRates            `yaml:"default" json:"default"`
	Symbols map[string]SymbolRates `yaml:"symbols" json:"symbols"`
}

// builtinTable carries the liquidity-ranked defaults. Anything not listed
// falls back to Default.
func builtinTable() Table {
	return Table{
		Default: SymbolRates{SlippagePct: 0.05, SpreadPct: 0.10},
		Symbols: map[string]SymbolRates{
			"BTCUSDT":  {SlippagePct: 0.02, SpreadPct: 0.03},
			"ETHUSDT":  {SlippagePct: 0.02, SpreadPct: 0.04},
			"BNBUSDT":  {SlippagePct: 0.03, SpreadPct: 0.05},
			"SOLUSDT":  {SlippagePct: 0.04, SpreadPct: 0.06},
			"XRPUSDT":  {SlippagePct: 0.04, SpreadPct: 0.07},
			"ADAUSDT":  {SlippagePct: 0.05, SpreadPct: 0.08},
			"DOGEUSDT": {SlippagePct: 0.05, SpreadPct: 0.08},
			"LTCUSDT":  {SlippagePct: 0.05, SpreadPct: 0.07},
			"DOTUSDT":  {SlippagePct: 0.05, SpreadPct: 0.08},
			"AVAXUSDT": {SlippagePct: 0.05, SpreadPct: 0.08},
			"LINKUSDT": {SlippagePct: 0.05, SpreadPct: 0.08},
			"ATOMUSDT": {SlippagePct: 0.05, SpreadPct: 0.08},
		},
	}
}

// Rates returns the rates for symbol, falling back to the default row.
func (t Table) Rates(symbol string) SymbolRates {
	if r, ok := t.Symbols[strings.ToUpper(strings.TrimSpace(symbol))]; ok {
		return r
	}
	return t.Default
}

var tableSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"default": map[string]any{"$ref": "#/$defs/rates"},
		"symbols": map[string]any{
			"type":                 "object",
			"additionalProperties": map[string]any{"$ref": "#/$defs/rates"},
		},
	},
	"additionalProperties": false,
	"$defs": map[string]any{
		"rates": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"slippage_pct": map[string]any{"type": "number", "minimum": 0, "maximum": 1},
				"spread_pct":   map[string]any{"type": "number", "minimum": 0, "maximum": 1},
			},
			"additionalProperties": false,
		},
	},
}

// TableRegistry 管理成本表：内置默认值 + 可选的热更新覆盖文件。
type TableRegistry struct {
	path   string
	schema *jsonschema.Schema

	mu       sync.RWMutex
	table    Table
	version  int64
	loadedAt time.Time
}

// NewTableRegistry loads the override file at path (optional, "" means
// builtin defaults only) and watches it for changes.
func NewTableRegistry(path string) (*TableRegistry, error) {
	schema, err := compileTableSchema()
	if err != nil {
		return nil, fmt.Errorf("cost table schema: %w", err)
	}
	r := &TableRegistry{path: strings.TrimSpace(path), schema: schema, table: builtinTable()}
	if r.path == "" {
		return r, nil
	}
	if err := r.reload(); err != nil {
		return nil, err
	}
	v := viper.New()
	v.SetConfigFile(r.path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read cost table failed: %w", err)
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := r.reload(); err != nil {
			logger.Errorf("cost table reload failed, keeping previous table: %v", err)
		}
	})
	v.WatchConfig()
	return r, nil
}

// Current returns the active table.
func (r *TableRegistry) Current() Table {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.table
}

// Version increments on every successful reload.
func (r *TableRegistry) Version() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

func (r *TableRegistry) reload() error {
	loaded, err := r.readTableFile()
	if err != nil {
		return err
	}
	merged := builtinTable()
	if loaded.Default.SlippagePct > 0 || loaded.Default.SpreadPct > 0 {
		merged.Default = loaded.Default
	}
	for sym, rates := range loaded.Symbols {
		merged.Symbols[strings.ToUpper(strings.TrimSpace(sym))] = rates
	}
	r.mu.Lock()
	r.table = merged
	r.version++
	r.loadedAt = time.Now()
	version := r.version
	r.mu.Unlock()
	logger.Infof("cost table loaded %d symbol overrides from %s (v%d)",
		len(loaded.Symbols), filepath.Base(r.path), version)
	return nil
}

func (r *TableRegistry) readTableFile() (Table, error) {
	raw, err := os.ReadFile(r.path)
	if err != nil {
		return Table{}, fmt.Errorf("read cost table failed: %w", err)
	}
	var probe any
	if err := yaml.Unmarshal(raw, &probe); err != nil {
		return Table{}, fmt.Errorf("parse cost table failed: %w", err)
	}
	if err := r.schema.Validate(normalizeYAML(probe)); err != nil {
		return Table{}, fmt.Errorf("cost table schema violation: %w", err)
	}
	var t Table
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil {
		return Table{}, fmt.Errorf("decode cost table failed: %w", err)
	}
	return t, nil
}

func compileTableSchema() (*jsonschema.Schema, error) {
	raw, err := json.Marshal(tableSchema)
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("cost_table.json", bytes.NewReader(raw)); err != nil {
		return nil, err
	}
	return compiler.Compile("cost_table.json")
}

// normalizeYAML rewrites yaml map keys to strings so the jsonschema
// validator accepts the document.
func normalizeYAML(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			out[k] = normalizeYAML(child)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			ks, ok := k.(string)
			if !ok {
				ks = fmt.Sprintf("%v", k)
			}
			out[ks] = normalizeYAML(child)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			out[i] = normalizeYAML(child)
		}
		return out
	default:
		return val
	}
}
