// Package catalogcsv lee el maestro de productos y bodegas desde CSV.
//
// Formatos (con encabezado, columnas en cualquier orden):
//
//	products.csv:   id,code,name,unit_measure,active
//	warehouses.csv: id,name,address,active
//
// Los listados exportados de sistemas anteriores suelen venir en ISO-8859-1.
package catalogcsv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jhoicas/dispensario-api/internal/domain/entity"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Nombres de archivo esperados dentro del directorio del catálogo.
const (
	ProductsFile   = "products.csv"
	WarehousesFile = "warehouses.csv"
)

// Catalog contenido leído.
type Catalog struct {
	Products   []entity.Product
	Warehouses []entity.Warehouse
}

// LoadDir lee products.csv y warehouses.csv de dir. Un archivo ausente se toma como vacío.
func LoadDir(dir, charset string) (*Catalog, error) {
	var cat Catalog
	err := withFile(filepath.Join(dir, ProductsFile), func(r io.Reader) error {
		var err error
		cat.Products, err = ReadProducts(r, charset)
		return err
	})
	if err != nil {
		return nil, err
	}
	err = withFile(filepath.Join(dir, WarehousesFile), func(r io.Reader) error {
		var err error
		cat.Warehouses, err = ReadWarehouses(r, charset)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &cat, nil
}

func withFile(path string, fn func(io.Reader) error) error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("abrir %s: %w", path, err)
	}
	defer f.Close()
	if err := fn(f); err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return nil
}

// ReadProducts lee productos; id, code y name son obligatorios.
func ReadProducts(r io.Reader, charset string) ([]entity.Product, error) {
	now := time.Now().UTC()
	var out []entity.Product
	err := readRows(r, charset, []string{"id", "code", "name"}, func(line int, row record) error {
		active, err := row.flag("active", true)
		if err != nil {
			return fmt.Errorf("línea %d: %w", line, err)
		}
		unit := row.get("unit_measure")
		if unit == "" {
			unit = "UND"
		}
		out = append(out, entity.Product{
			ID: row.get("id"), Code: row.get("code"), Name: row.get("name"),
			UnitMeasure: unit, Active: active, CreatedAt: now, UpdatedAt: now,
		})
		return nil
	})
	return out, err
}

// ReadWarehouses lee bodegas; id y name son obligatorios.
func ReadWarehouses(r io.Reader, charset string) ([]entity.Warehouse, error) {
	now := time.Now().UTC()
	var out []entity.Warehouse
	err := readRows(r, charset, []string{"id", "name"}, func(line int, row record) error {
		active, err := row.flag("active", true)
		if err != nil {
			return fmt.Errorf("línea %d: %w", line, err)
		}
		out = append(out, entity.Warehouse{
			ID: row.get("id"), Name: row.get("name"), Address: row.get("address"),
			Active: active, CreatedAt: now, UpdatedAt: now,
		})
		return nil
	})
	return out, err
}

type record struct {
	cols   map[string]int
	fields []string
}

func (r record) get(col string) string {
	i, ok := r.cols[col]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[i])
}

func (r record) flag(col string, def bool) (bool, error) {
	v := r.get(col)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s inválido %q", col, v)
	}
	return b, nil
}

func decoder(r io.Reader, charset string) (io.Reader, error) {
	switch strings.ToLower(charset) {
	case "", "utf-8", "utf8":
		return r, nil
	case "iso-8859-1", "iso8859-1", "latin1":
		return transform.NewReader(r, charmap.ISO8859_1.NewDecoder()), nil
	case "windows-1252", "cp1252":
		return transform.NewReader(r, charmap.Windows1252.NewDecoder()), nil
	default:
		return nil, fmt.Errorf("charset no soportado %q", charset)
	}
}

func readRows(r io.Reader, charset string, required []string, fn func(line int, row record) error) error {
	in, err := decoder(r, charset)
	if err != nil {
		return err
	}
	cr := csv.NewReader(in)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("leer encabezado: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, c := range required {
		if _, ok := cols[c]; !ok {
			return fmt.Errorf("falta la columna %q", c)
		}
	}

	for line := 2; ; line++ {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("línea %d: %w", line, err)
		}
		row := record{cols: cols, fields: fields}
		for _, c := range required {
			if row.get(c) == "" {
				return fmt.Errorf("línea %d: %s vacío", line, c)
			}
		}
		if err := fn(line, row); err != nil {
			return err
		}
	}
}
