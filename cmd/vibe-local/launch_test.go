package main

import (
	"reflect"
	"strings"
	"testing"
)

func TestParseLaunchArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want launchOptions
	}{
		{
			name: "no arguments",
			args: nil,
			want: launchOptions{},
		},
		{
			name: "auto mode",
			args: []string{"--auto"},
			want: launchOptions{Auto: true},
		},
		{
			name: "model override",
			args: []string{"--model", "qwen3-coder:30b"},
			want: launchOptions{Model: "qwen3-coder:30b"},
		},
		{
			name: "yes short flag",
			args: []string{"-y"},
			want: launchOptions{Yes: true},
		},
		{
			name: "yes long flag",
			args: []string{"--yes"},
			want: launchOptions{Yes: true},
		},
		{
			name: "one-shot prompt",
			args: []string{"-p", "fix the build"},
			want: launchOptions{Prompt: "fix the build"},
		},
		{
			name: "config short flag",
			args: []string{"-c", "/tmp/vibe.conf"},
			want: launchOptions{Config: "/tmp/vibe.conf"},
		},
		{
			name: "debug flag",
			args: []string{"--debug"},
			want: launchOptions{Debug: true},
		},
		{
			name: "passthrough after double dash",
			args: []string{"--model", "m", "--", "--model", "kept-verbatim"},
			want: launchOptions{Model: "m", Passthrough: []string{"--model", "kept-verbatim"}},
		},
		{
			name: "empty passthrough",
			args: []string{"--auto", "--"},
			want: launchOptions{Auto: true, Passthrough: []string{}},
		},
		{
			name: "combined flags",
			args: []string{"--auto", "-y", "-d", "--model", "m", "-p", "hi"},
			want: launchOptions{Auto: true, Yes: true, Debug: true, Model: "m", Prompt: "hi"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseLaunchArgs(tt.args)
			if err != nil {
				t.Fatalf("parseLaunchArgs(%v) returned error: %v", tt.args, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseLaunchArgs(%v) = %+v, want %+v", tt.args, got, tt.want)
			}
		})
	}
}

func TestParseLaunchArgsErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{
			name:    "unknown flag",
			args:    []string{"--bogus"},
			wantErr: "unknown option: --bogus",
		},
		{
			name:    "model without value",
			args:    []string{"--model"},
			wantErr: "--model requires a value",
		},
		{
			name:    "prompt without value",
			args:    []string{"-p"},
			wantErr: "-p requires a value",
		},
		{
			name:    "config without value",
			args:    []string{"--config"},
			wantErr: "--config requires a value",
		},
		{
			name:    "agent flag before double dash",
			args:    []string{"--dangerously-skip-permissions"},
			wantErr: "unknown option",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseLaunchArgs(tt.args)
			if err == nil {
				t.Fatalf("parseLaunchArgs(%v) succeeded, want error", tt.args)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("parseLaunchArgs(%v) error = %q, want containing %q", tt.args, err, tt.wantErr)
			}
		})
	}
}
