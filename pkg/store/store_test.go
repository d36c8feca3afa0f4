package store

import (
	"testing"

	"github.com/gitrdm/causalkernel/pkg/kernel"
)

func newTestModel(id string) *kernel.Mdl {
	return kernel.NewMdl(id,
		kernel.MdlLeft{Kind: kernel.LHSCommand, Command: kernel.Command{
			Name: "move", Entity: kernel.BoundEntity("hand"), Params: kernel.Pattern{kernel.Binding("dp")},
		}},
		kernel.MdlRight{Kind: kernel.RHSMkVal, MkVal: kernel.MkVal{
			Entity: kernel.BoundEntity("hand"), VarName: "position", Value: kernel.Binding("cp"),
		}},
	)
}

func TestSaveLoadModelsRoundTrip(t *testing.T) {
	s, err := Open("")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	models := map[string]*kernel.Mdl{"mdl_move": newTestModel("mdl_move")}
	if err := s.SaveModels(models); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := s.LoadModels()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("expected 1 model, got %d", len(loaded))
	}
	got, ok := loaded["mdl_move"]
	if !ok {
		t.Fatalf("expected mdl_move to round-trip")
	}
	if got.Left.Pattern.Kind != kernel.LHSCommand || got.Left.Pattern.Command.Name != "move" {
		t.Fatalf("unexpected LHS after round-trip: %+v", got.Left)
	}
}

func TestSaveLoadCstsRoundTrip(t *testing.T) {
	s, err := Open("")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	csts := map[string]*kernel.Cst{
		"cst_pos": {
			ID: "cst_pos",
			Facts: []kernel.Fact[kernel.MkVal]{
				kernel.NewFact(kernel.MkVal{Entity: kernel.BoundEntity("hand"), VarName: "position", Value: kernel.Binding("p")}),
			},
		},
	}
	if err := s.SaveCsts(csts); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := s.LoadCsts()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 1 || loaded["cst_pos"].ID != "cst_pos" {
		t.Fatalf("expected cst_pos to round-trip, got %+v", loaded)
	}
}

func TestLoadEmptyStoreReturnsEmptyMaps(t *testing.T) {
	s, err := Open("")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	models, err := s.LoadModels()
	if err != nil || len(models) != 0 {
		t.Fatalf("expected empty model map, got %v, err %v", models, err)
	}
	csts, err := s.LoadCsts()
	if err != nil || len(csts) != 0 {
		t.Fatalf("expected empty cst map, got %v, err %v", csts, err)
	}
}
