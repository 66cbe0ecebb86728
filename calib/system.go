package calib

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"
)

// Sensitivity is ∂node(d)/∂x[Index] for one unknown of a system.
type Sensitivity struct {
	Index int
	D     float64
}

// Basis maps a node date to the unknowns it depends on.
type Basis func(d time.Time) []Sensitivity

// System is a set of rows solved together for n unknowns.
type System struct {
	Rows []*Constraint
}

// Partition groups rows that must be resolved jointly: rows sharing a merge
// label, directly or through a chain of labels, land in the same group. Rows
// without labels form one further group. Group order follows first appearance.
func Partition(rows []*Constraint) []System {
	parent := make([]int, len(rows))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[rb] = ra
		}
	}

	owner := make(map[string]int)
	unlabeled := -1
	for i, r := range rows {
		labels := r.MergeLabels()
		if len(labels) == 0 {
			if unlabeled < 0 {
				unlabeled = i
			} else {
				union(unlabeled, i)
			}
			continue
		}
		for _, l := range labels {
			if j, ok := owner[l]; ok {
				union(j, i)
			} else {
				owner[l] = i
			}
		}
	}

	index := make(map[int]int)
	var out []System
	for i, r := range rows {
		root := find(i)
		g, ok := index[root]
		if !ok {
			g = len(out)
			index[root] = g
			out = append(out, System{})
		}
		out[g].Rows = append(out[g].Rows, r)
	}
	return out
}

// MergeLabels returns the union of the rows' merge labels.
func (s System) MergeLabels() []string {
	all := NewConstraint()
	for _, r := range s.Rows {
		for _, l := range r.MergeLabels() {
			all.AddMergeLabel(l)
		}
	}
	return all.MergeLabels()
}

// Residuals evaluates every row against node.
func (s System) Residuals(node func(time.Time) float64) *mat.VecDense {
	r := mat.NewVecDense(max(len(s.Rows), 1), nil)
	for i, row := range s.Rows {
		r.SetVec(i, row.Residual(node))
	}
	return r
}

// Jacobian assembles ∂residual[i]/∂x[k] for n unknowns given the basis.
func (s System) Jacobian(n int, basis Basis) *mat.Dense {
	j := mat.NewDense(max(len(s.Rows), 1), max(n, 1), nil)
	for i, row := range s.Rows {
		for _, d := range row.NodeDates() {
			w := row.Weight(d)
			for _, sens := range basis(d) {
				if sens.Index < 0 || sens.Index >= n {
					continue
				}
				j.Set(i, sens.Index, j.At(i, sens.Index)+w*sens.D)
			}
		}
	}
	return j
}

// SolveLinear solves the system when every node value is a linear combination
// of the unknowns given by basis: Σ_d w(d) Σ_k s_k x_k = value.
func (s System) SolveLinear(n int, basis Basis) ([]float64, error) {
	if len(s.Rows) != n {
		return nil, fmt.Errorf("linear system has %d rows for %d unknowns: %w", len(s.Rows), n, ErrInvalidInput)
	}
	a := s.Jacobian(n, basis)
	b := mat.NewVecDense(n, nil)
	for i, row := range s.Rows {
		b.SetVec(i, row.Value())
	}
	var x mat.VecDense
	if err := x.SolveVec(a, b); err != nil {
		return nil, fmt.Errorf("solve linear system: %w", err)
	}
	return x.RawVector().Data, nil
}

// NewtonStep returns δ solving J·δ = −r.
func NewtonStep(j *mat.Dense, r *mat.VecDense) ([]float64, error) {
	neg := mat.NewVecDense(r.Len(), nil)
	neg.ScaleVec(-1, r)
	var delta mat.VecDense
	if err := delta.SolveVec(j, neg); err != nil {
		return nil, fmt.Errorf("newton step: %w", err)
	}
	return delta.RawVector().Data, nil
}
