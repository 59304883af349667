package remote

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"github.com/cuemby/dockhand/pkg/host"
	"github.com/cuemby/dockhand/pkg/types"
)

// Wire types for the HTTP+JSON dialect spoken by a dockhand peer:
// every request is a GET with query-string parameters, every response
// a small JSON object. Lists travel comma-joined (ports) or as JSON
// arrays (command args, image args); maps as repeated key=value
// parameters; booleans as "true"/"false".

// streamPage is one reply from /stdout or /stderr: the slice of
// entries at logical positions [realOffset, length), plus how many
// entries the server has already evicted. A page with Running false
// means the process is gone and the puller should stop.
type streamPage struct {
	Running bool     `json:"running"`
	Length  int64    `json:"length"`
	Removed int64    `json:"removed"`
	Entries []string `json:"entries"`
}

type createResponse struct {
	ContainerName string   `json:"containerName"`
	ID            string   `json:"id"`
	Image         string   `json:"image"`
	Ports         []string `json:"ports"`
	Network       string   `json:"network"`
	Hostname      string   `json:"hostname"`
}

type runResponse struct {
	InstanceID    int64  `json:"instanceID"`
	ContainerName string `json:"containerName"`
	ID            string `json:"id"`
}

type execResponse struct {
	InstanceID    int64  `json:"instanceID"`
	ContainerName string `json:"containerName"`
}

type commandResponse struct {
	InstanceID int64 `json:"instanceID"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// jsonArray renders args as the JSON-array parameter encoding.
func jsonArray(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(items)
	return string(b)
}

// specParams renders the container-shape parameters shared by /create
// and /run.
func specParams(spec host.RunSpec) url.Values {
	v := url.Values{
		"image":          {spec.Image},
		"name":           {spec.ContainerName},
		"cleanContainer": {strconv.FormatBool(spec.CleanOrDefault(false))},
	}
	if spec.Version != "" {
		v.Set("version", spec.Version)
	}
	if len(spec.Ports) > 0 {
		v.Set("ports", strings.Join(spec.Ports, ","))
	}
	if spec.Network != "" {
		v.Set("network", spec.Network)
	}
	if spec.Hostname != "" {
		v.Set("hostname", spec.Hostname)
	}
	for _, vol := range spec.Volumes {
		v.Add("volumes", vol)
	}
	for _, env := range spec.Env {
		v.Add("environment", env)
	}
	return v
}

// outputParams renders the stream-shape parameters shared by /run,
// /exec and /command.
func outputParams(asLines bool, limit int) url.Values {
	v := url.Values{"outputAsLines": {strconv.FormatBool(asLines)}}
	if limit > 0 {
		v.Set("outputLimit", strconv.Itoa(limit))
	}
	return v
}

func instanceParams(instance types.InstanceID) url.Values {
	return url.Values{"instanceID": {strconv.FormatInt(int64(instance), 10)}}
}

// merge folds the given url.Values into one; later sets win on key
// collision.
func merge(sets ...url.Values) url.Values {
	out := url.Values{}
	for _, set := range sets {
		for k, vals := range set {
			out[k] = vals
		}
	}
	return out
}
