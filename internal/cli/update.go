package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-version"
)

type githubRelease struct {
	TagName string `json:"tag_name"`
}

// CheckForUpdates compares current against the latest GitHub release and
// prints a notice when a newer one exists. Failures are silent: an update
// nag must never break the tool.
func CheckForUpdates(current string) {
	url := "https://api.github.com/repos/nulzo/llm-bridge/releases/latest"

	client := http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return
	}

	var release githubRelease
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return
	}

	cur, err := version.NewVersion(current)
	if err != nil {
		return
	}
	latest, err := version.NewVersion(release.TagName)
	if err != nil {
		return
	}

	if cur.LessThan(latest) {
		fmt.Printf("%s a newer release is available: %s (you have %s)\n",
			Style("update:", Yellow), release.TagName, current)
	}
}
