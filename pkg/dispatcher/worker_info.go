package dispatcher

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/denisbrodbeck/machineid"
)

const (
	LocalWorker  = "local"
	RemoteWorker = "remote"
)

// Descriptive information about a worker.
type WorkerInfo struct {
	// Worker identifier, unique per dispatcher.
	Id string `json:"id" cbor:"1,keyasint"`
	// "local" or "remote"
	Type string `json:"type" cbor:"2,keyasint"`
	// Host name of the machine running the worker
	Hostname string `json:"hostname" cbor:"3,keyasint"`
	// Stable identifier of the machine running the worker
	MachineId string `json:"machine_id,omitempty" cbor:"4,keyasint,omitempty"`
	// Architecture and operating system
	Arch string `json:"arch" cbor:"5,keyasint"`
	OS   string `json:"os" cbor:"6,keyasint"`
	// Number of CPUs on the machine
	Cpus int `json:"cpus" cbor:"7,keyasint"`
	// Number of live worker processes
	Processes int `json:"processes" cbor:"8,keyasint"`
}

// Information about a worker running on this machine, with
// the architecture, operating system, number of cpus and machine id filled in.
func NewLocalWorkerInfo() WorkerInfo {
	info := WorkerInfo{
		Type: LocalWorker,
		Arch: runtime.GOARCH,
		OS:   runtime.GOOS,
		Cpus: runtime.NumCPU(),
	}
	if id, err := machineid.ProtectedID("multinode-worker"); err == nil {
		info.MachineId = id
	}
	if hostname, err := os.Hostname(); err == nil {
		info.Hostname = hostname
	}
	return info
}

// String returns a string representation of the worker.
func (i WorkerInfo) String() string {
	parts := []string{
		fmt.Sprintf("type=%s", i.Type),
		fmt.Sprintf("hostname=%s", i.Hostname),
		fmt.Sprintf("platform=%s/%s", i.OS, i.Arch),
		fmt.Sprintf("processes=%d", i.Processes),
	}
	if i.Id != "" {
		parts = append([]string{fmt.Sprintf("id=%s", i.Id)}, parts...)
	}
	return strings.Join(parts, " ")
}
