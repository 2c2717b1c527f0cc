// Package config loads run configurations from YAML files.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/comp-physics/ECOGEN-CIT/mesh"
)

// Run is the on-disk run description.
type Run struct {
	Name string `yaml:"name"`

	Mesh struct {
		LengthX      float64            `yaml:"lengthX"`
		LengthY      float64            `yaml:"lengthY"`
		LengthZ      float64            `yaml:"lengthZ"`
		NumberCellsX int                `yaml:"numberCellsX"`
		NumberCellsY int                `yaml:"numberCellsY"`
		NumberCellsZ int                `yaml:"numberCellsZ"`
		StretchX     []mesh.StretchZone `yaml:"stretchX"`
		StretchY     []mesh.StretchZone `yaml:"stretchY"`
		StretchZ     []mesh.StretchZone `yaml:"stretchZ"`
	} `yaml:"mesh"`

	AMR struct {
		LvlMax      int     `yaml:"lvlMax"`
		CriteriaVar float64 `yaml:"criteriaVar"`
		VarRho      bool    `yaml:"varRho"`
		VarP        bool    `yaml:"varP"`
		VarU        bool    `yaml:"varU"`
		VarAlpha    bool    `yaml:"varAlpha"`
		XiSplit     float64 `yaml:"xiSplit"`
		XiJoin      float64 `yaml:"xiJoin"`
	} `yaml:"amr"`

	Scheme struct {
		Order int `yaml:"order"`
	} `yaml:"scheme"`

	Boundaries struct {
		XM string `yaml:"xm"`
		XP string `yaml:"xp"`
		YM string `yaml:"ym"`
		YP string `yaml:"yp"`
		ZM string `yaml:"zm"`
		ZP string `yaml:"zp"`
	} `yaml:"boundaries"`

	Model struct {
		Gammas     []float64 `yaml:"gammas"`
		Transports int       `yaml:"transports"`
	} `yaml:"model"`

	Output struct {
		Directory string `yaml:"directory"`
	} `yaml:"output"`
}

// Load reads and decodes a run file.
func Load(path string) (*Run, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	var r Run
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("config: decoding %s: %w", path, err)
	}
	return &r, nil
}

// MeshConfig maps the run description onto the mesh configuration.
func (r *Run) MeshConfig() (mesh.Config, error) {
	order := r.Scheme.Order
	if order == 0 {
		order = int(mesh.FirstOrder)
	}
	cfg := mesh.Config{
		LengthX:      r.Mesh.LengthX,
		LengthY:      r.Mesh.LengthY,
		LengthZ:      r.Mesh.LengthZ,
		NumberCellsX: r.Mesh.NumberCellsX,
		NumberCellsY: r.Mesh.NumberCellsY,
		NumberCellsZ: r.Mesh.NumberCellsZ,
		StretchX:     r.Mesh.StretchX,
		StretchY:     r.Mesh.StretchY,
		StretchZ:     r.Mesh.StretchZ,
		LvlMax:       r.AMR.LvlMax,
		CriteriaVar:  r.AMR.CriteriaVar,
		Var: mesh.XiFlags{
			Rho:   r.AMR.VarRho,
			P:     r.AMR.VarP,
			U:     r.AMR.VarU,
			Alpha: r.AMR.VarAlpha,
		},
		XiSplit: r.AMR.XiSplit,
		XiJoin:  r.AMR.XiJoin,
		Order:   mesh.SchemeOrder(order),
	}

	var err error
	set := func(dst *mesh.BoundaryKind, name, face string) {
		if err != nil {
			return
		}
		*dst, err = parseBoundary(name, face)
	}
	set(&cfg.Boundaries.XM, r.Boundaries.XM, "xm")
	set(&cfg.Boundaries.XP, r.Boundaries.XP, "xp")
	set(&cfg.Boundaries.YM, r.Boundaries.YM, "ym")
	set(&cfg.Boundaries.YP, r.Boundaries.YP, "yp")
	set(&cfg.Boundaries.ZM, r.Boundaries.ZM, "zm")
	set(&cfg.Boundaries.ZP, r.Boundaries.ZP, "zp")
	if err != nil {
		return mesh.Config{}, err
	}
	return cfg, nil
}

func parseBoundary(name, face string) (mesh.BoundaryKind, error) {
	switch name {
	case "", "absorption":
		return mesh.Absorption, nil
	case "wall":
		return mesh.Wall, nil
	case "symmetry":
		return mesh.Symmetry, nil
	case "inflow":
		return mesh.Inflow, nil
	case "outflow":
		return mesh.Outflow, nil
	default:
		return 0, fmt.Errorf("config: unknown boundary kind %q on face %s", name, face)
	}
}
