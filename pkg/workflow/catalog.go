package workflow

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/medreview-ai/platform/pkg/common/models"
	"gopkg.in/yaml.v3"
)

// Chase workflow status names, in lifecycle order.
const (
	StatusChartCollection = "ChartCollection"
	StatusWaitingForChart = "WaitingForChart"
	StatusChartQA         = "ChartQA"
	StatusAbstraction     = "Abstraction"
	StatusOverread        = "Overread"
	StatusOverread2       = "Overread2"
	StatusDelivery        = "Delivery"
)

type Catalog struct {
	Statuses []models.WorkflowStatusItem `yaml:"statuses" json:"statuses"`
}

// Load reads the workflow status catalog from a YAML file, falling back to the
// compiled-in defaults when no path is configured.
func Load(path string) (Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultCatalog(), err
	}

	var cat Catalog
	if err := yaml.Unmarshal(content, &cat); err != nil {
		return Catalog{}, err
	}
	if len(cat.Statuses) == 0 {
		return Catalog{}, errors.New("workflow catalog empty")
	}
	return cat, nil
}

func DefaultCatalog() Catalog {
	return Catalog{Statuses: []models.WorkflowStatusItem{
		{WorkflowStatusID: 1, WorkflowStatusName: StatusChartCollection},
		{WorkflowStatusID: 2, WorkflowStatusName: StatusWaitingForChart},
		{WorkflowStatusID: 3, WorkflowStatusName: StatusChartQA},
		{WorkflowStatusID: 4, WorkflowStatusName: StatusAbstraction},
		{WorkflowStatusID: 5, WorkflowStatusName: StatusOverread},
		{WorkflowStatusID: 6, WorkflowStatusName: StatusOverread2},
		{WorkflowStatusID: 7, WorkflowStatusName: StatusDelivery},
	}}
}

// IDForName resolves a workflow status name to its id, 0 when unknown.
func (c Catalog) IDForName(name string) int {
	for _, status := range c.Statuses {
		if strings.EqualFold(status.WorkflowStatusName, name) {
			return status.WorkflowStatusID
		}
	}
	return 0
}

// RegressThreshold is the highest workflow status id at which a chase counts
// as regressed to the early lifecycle; NLP annotations are purged at or below
// this point.
func (c Catalog) RegressThreshold() int {
	return c.IDForName(StatusAbstraction)
}

// IsRegressed reports whether a status id sits at or below the purge
// threshold. Unknown statuses (id 0 from IDForName) are NOT regressed: a
// name the catalog cannot resolve must never trigger a purge.
func (c Catalog) IsRegressed(statusID int) bool {
	return statusID > 0 && statusID <= c.RegressThreshold()
}

// IsChartAttachStatus reports whether charts may still be attached at the
// given status.
func (c Catalog) IsChartAttachStatus(statusID int) bool {
	switch statusID {
	case c.IDForName(StatusChartCollection),
		c.IDForName(StatusWaitingForChart),
		c.IDForName(StatusChartQA),
		c.IDForName(StatusAbstraction):
		return true
	}
	return false
}
