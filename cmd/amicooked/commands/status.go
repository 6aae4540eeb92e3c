package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// RunStatus probes the configured gateway's health endpoint.
func RunStatus() {
	cfg := mustLoadConfig()
	url := fmt.Sprintf("http://%s/healthz", cfg.Gateway.Addr())

	client := &http.Client{Timeout: 3 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		fmt.Printf("Gateway at %s is not responding: %v\n", cfg.Gateway.Addr(), err)
		return
	}
	defer resp.Body.Close()

	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)

	if resp.StatusCode == http.StatusOK && body["status"] == "ok" {
		fmt.Printf("%s Gateway at %s is up.\n", Logo, cfg.Gateway.Addr())
		return
	}
	fmt.Printf("Gateway at %s answered %d.\n", cfg.Gateway.Addr(), resp.StatusCode)
}
