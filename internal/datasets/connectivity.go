package datasets

import (
	"errors"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Kind selects structural or functional connectivity.
type Kind string

const (
	Structural Kind = "sc"
	Functional Kind = "fc"
)

// ParseKind validates a connectivity kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(s)) {
	case Structural:
		return Structural, nil
	case Functional:
		return Functional, nil
	}
	return "", fmt.Errorf("unknown connectivity kind %q (want sc or fc)", s)
}

func (k Kind) prefix() string {
	if k == Functional {
		return "func"
	}
	return "struc"
}

// Connectivity is a group-level connectome for one parcellation.
type Connectivity struct {
	Kind         Kind
	Parcellation string

	// Cortex is the square cortico-cortical matrix.
	Cortex       *mat.Dense
	CortexLabels []string

	// Subcortex holds subcortico-cortical connections, one row per
	// subcortical region and one column per cortical region. It is nil
	// when the data directory carries no subcortical matrix.
	Subcortex       *mat.Dense
	SubcortexLabels []string
}

// LoadConnectivity loads the cortical matrix and labels of kind for parc,
// plus the subcortical matrix when present.
func (l *Loader) LoadConnectivity(kind Kind, parc string) (*Connectivity, error) {
	dir := l.Path("matrices", "hcp_connectivity")
	file := func(what, scope string) string {
		return fmt.Sprintf("%s/%s%s_%s_%s.csv", dir, kind.prefix(), what, scope, parc)
	}

	ctx, err := l.matrix(file("Matrix", "ctx"))
	if err != nil {
		return nil, err
	}
	r, c := ctx.Dims()
	if r != c {
		return nil, fmt.Errorf("%w: cortical matrix is %dx%d, want square", ErrMalformed, r, c)
	}
	ctxLabels, err := l.labels(file("Labels", "ctx"))
	if err != nil {
		return nil, err
	}
	if len(ctxLabels) != r {
		return nil, fmt.Errorf("%w: %d cortical labels for %d regions", ErrMalformed, len(ctxLabels), r)
	}

	conn := &Connectivity{
		Kind:         kind,
		Parcellation: parc,
		Cortex:       ctx,
		CortexLabels: ctxLabels,
	}

	sctx, err := l.matrix(file("Matrix", "sctx"))
	if errors.Is(err, ErrNotFound) {
		return conn, nil
	}
	if err != nil {
		return nil, err
	}
	sr, sc := sctx.Dims()
	if sc != r {
		return nil, fmt.Errorf("%w: subcortical matrix has %d columns, want %d cortical regions", ErrMalformed, sc, r)
	}
	sctxLabels, err := l.labels(file("Labels", "sctx"))
	if err != nil {
		return nil, err
	}
	if len(sctxLabels) != sr {
		return nil, fmt.Errorf("%w: %d subcortical labels for %d regions", ErrMalformed, len(sctxLabels), sr)
	}
	conn.Subcortex = sctx
	conn.SubcortexLabels = sctxLabels
	return conn, nil
}
