package callsession

import (
	"errors"
	"testing"
)

func TestBuildStartCommand(t *testing.T) {
	tests := []struct {
		name    string
		params  Params
		wantErr error
		want    map[string]string
	}{
		{
			name:   "generate carries username and userid",
			params: Params{UserName: "Ada", UserID: "u-1", Kind: KindGenerate},
			want:   map[string]string{"username": "Ada", "userid": "u-1"},
		},
		{
			name:   "generate with empty name still sends both keys",
			params: Params{UserID: "u-2", Kind: KindGenerate},
			want:   map[string]string{"username": "", "userid": "u-2"},
		},
		{
			name:    "interview kind is not supported",
			params:  Params{UserID: "u-3", Kind: "interview"},
			wantErr: ErrUnsupportedSessionKind,
		},
		{
			name:    "empty kind",
			params:  Params{UserID: "u-4"},
			wantErr: ErrUnsupportedSessionKind,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := BuildStartCommand("wf", tt.params)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error: got %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cmd.WorkflowID != "wf" {
				t.Errorf("workflow: got %s, want wf", cmd.WorkflowID)
			}
			if len(cmd.VariableValues) != len(tt.want) {
				t.Fatalf("variables: got %v, want %v", cmd.VariableValues, tt.want)
			}
			for k, v := range tt.want {
				if got, ok := cmd.VariableValues[k]; !ok || got != v {
					t.Errorf("variables[%s]: got %q, want %q", k, got, v)
				}
			}
		})
	}
}

func TestStartCommandVariablesAreCopied(t *testing.T) {
	cmd, err := BuildStartCommand("wf", Params{UserName: "Ada", UserID: "u", Kind: KindGenerate})
	if err != nil {
		t.Fatal(err)
	}
	vars := cmd.variables()
	vars["username"] = "changed"
	if cmd.VariableValues["username"] != "Ada" {
		t.Error("variables() must return a copy")
	}
}
