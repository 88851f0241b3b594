package config

import (
	"github.com/GoSim-25-26J-441/gridrun/internal/grid"
)

// Plan is an experiment plan file: a list of tasks, each running one
// experiment function over a parameter grid.
type Plan struct {
	Tasks []TaskSpec `yaml:"tasks"`
}

// TaskSpec describes one task of a plan
type TaskSpec struct {
	Name       string     `yaml:"name"`
	Function   string     `yaml:"function"`
	Table      string     `yaml:"table,omitempty"`
	Overwrite  bool       `yaml:"overwrite,omitempty"`
	Parameters Parameters `yaml:"parameters"`
}

// Parameters keeps the declaration order of a YAML parameter mapping.
type Parameters []Param

// Param is one named parameter. Value is a scalar, or a []any of candidates
// once generators have been expanded.
type Param struct {
	Name  string
	Value any
}

// TableName returns the result table, defaulting to the task name.
func (t *TaskSpec) TableName() string {
	if t.Table != "" {
		return t.Table
	}
	return t.Name
}

// Spec builds the grid specification for the task's parameters.
func (t *TaskSpec) Spec() (*grid.Spec, error) {
	s := grid.NewSpec()
	for _, p := range t.Parameters {
		if err := s.Add(p.Name, p.Value); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Task returns the task with the given name.
func (p *Plan) Task(name string) (*TaskSpec, bool) {
	for i := range p.Tasks {
		if p.Tasks[i].Name == name {
			return &p.Tasks[i], true
		}
	}
	return nil, false
}

// TaskNames returns the task names in file order.
func (p *Plan) TaskNames() []string {
	names := make([]string, len(p.Tasks))
	for i, t := range p.Tasks {
		names[i] = t.Name
	}
	return names
}

// Settings holds the runtime settings shared by gridrun and gridd.
type Settings struct {
	DatabaseURL    string `mapstructure:"database_url"`
	LogLevel       string `mapstructure:"log_level"`
	LogFile        string `mapstructure:"log_file"`
	LogDir         string `mapstructure:"log_dir"`
	CallbackURL    string `mapstructure:"callback_url"`
	CallbackSecret string `mapstructure:"callback_secret"`
	GRPCAddr       string `mapstructure:"grpc_addr"`
	HTTPAddr       string `mapstructure:"http_addr"`
}
