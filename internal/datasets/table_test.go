package datasets

import (
	"errors"
	"math"
	"strings"
	"testing"
)

const summaryCSV = `Structure,d_icv,n_controls
L_bankssts_thickavg,-0.12,100
R_bankssts_thickavg,NA,100
`

func TestReadTable(t *testing.T) {
	tbl, err := ReadTable(strings.NewReader(summaryCSV))
	if err != nil {
		t.Fatalf("ReadTable() error = %v", err)
	}
	if tbl.Len() != 2 {
		t.Errorf("Len() = %d, want 2", tbl.Len())
	}
	if !tbl.Has("D_ICV") {
		t.Error("Has() should be case-insensitive")
	}

	names, err := tbl.Strings("structure")
	if err != nil {
		t.Fatalf("Strings() error = %v", err)
	}
	if names[0] != "L_bankssts_thickavg" {
		t.Errorf("names[0] = %q", names[0])
	}

	d, err := tbl.Column("d_icv")
	if err != nil {
		t.Fatalf("Column() error = %v", err)
	}
	if d[0] != -0.12 || !math.IsNaN(d[1]) {
		t.Errorf("d_icv = %v", d)
	}

	if _, err := tbl.Column("Structure"); !errors.Is(err, ErrMalformed) {
		t.Errorf("Column(Structure) error = %v, want ErrMalformed", err)
	}
	if _, err := tbl.Column("missing"); err == nil {
		t.Error("expected error for missing column")
	}

	got := tbl.NumericColumns()
	if len(got) != 2 || got[0] != "d_icv" || got[1] != "n_controls" {
		t.Errorf("NumericColumns() = %v", got)
	}
}

func TestReadTable_Errors(t *testing.T) {
	if _, err := ReadTable(strings.NewReader("")); !errors.Is(err, ErrMalformed) {
		t.Errorf("empty input error = %v", err)
	}
	if _, err := ReadTable(strings.NewReader("a,b\n1\n")); !errors.Is(err, ErrMalformed) {
		t.Errorf("short row error = %v", err)
	}
}

func TestTableClone(t *testing.T) {
	tbl, _ := ReadTable(strings.NewReader(summaryCSV))
	c := tbl.clone()
	c.Rows[0][1] = "9"
	if tbl.Rows[0][1] != "-0.12" {
		t.Error("clone shares rows with original")
	}
}
