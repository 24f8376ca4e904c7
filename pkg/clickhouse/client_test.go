package clickhouse

import (
	"testing"
	"time"
)

func TestBuildDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  ClientConfig
		want string
	}{
		{
			name: "native minimal",
			cfg:  ClientConfig{Host: "ch", Port: 9000, Database: "goldpredict", User: "default"},
			want: "clickhouse://default:@ch:9000/goldpredict",
		},
		{
			name: "http with settings",
			cfg: ClientConfig{
				Host: "ch", Port: 8123, Database: "db", User: "u", Password: "p@ss",
				UseHTTP: true, DialTimeout: 5 * time.Second, MaxExecTime: 30 * time.Second,
				AsyncInsert: true, WaitForAsync: true,
			},
			want: "clickhouse+http://u:p%40ss@ch:8123/db?async_insert=1&dial_timeout=5s&max_execution_time=30&wait_for_async_insert=1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildDSN(tt.cfg); got != tt.want {
				t.Fatalf("buildDSN() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewClientRequiresHost(t *testing.T) {
	if _, err := NewClient(); err == nil {
		t.Fatal("expected error without host")
	}
}
