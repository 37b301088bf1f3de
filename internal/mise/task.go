package mise

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/tidwall/gjson"
)

// Task is one entry of "mise tasks ls --json".
type Task struct {
	Name        string   `json:"name"`
	Aliases     []string `json:"aliases"`
	Description string   `json:"description"`
	Source      string   `json:"source"`
	Depends     []string `json:"depends"`
	DependsPost []string `json:"depends_post"`
	WaitFor     []string `json:"wait_for"`
	Dir         string   `json:"dir"`
	Hide        bool     `json:"hide"`
	Raw         bool     `json:"raw"`
	Sources     []string `json:"sources"`
	Outputs     []string `json:"outputs"`
	Shell       string   `json:"shell"`
	Quiet       bool     `json:"quiet"`
	Silent      bool     `json:"silent"`
	Run         Script   `json:"run"`
	File        string   `json:"file"`
}

// IsConfigTask reports whether the task is defined in a toml [tasks] table
// rather than as an executable file.
func (t Task) IsConfigTask() bool {
	return strings.HasSuffix(t.Source, ".toml")
}

// Script is a task's run command. mise reports it either as a single string
// or as a list of commands.
type Script []string

// UnmarshalJSON accepts a string, a list of strings, or null.
func (s *Script) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		if one == "" {
			*s = nil
		} else {
			*s = Script{one}
		}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("run must be a string or list of strings: %w", err)
	}
	*s = many
	return nil
}

// String joins the commands one per line.
func (s Script) String() string {
	return strings.Join(s, "\n")
}

// ParseTasks decodes the output of "mise tasks ls --json".
func ParseTasks(data []byte) ([]Task, error) {
	var tasks []Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("failed to parse mise tasks JSON: %w", err)
	}
	return tasks, nil
}

// Names returns task names in listing order, skipping hidden tasks unless
// showHidden is set.
func Names(tasks []Task, showHidden bool) []string {
	names := make([]string, 0, len(tasks))
	for _, t := range tasks {
		if t.Hide && !showHidden {
			continue
		}
		names = append(names, t.Name)
	}
	return names
}

// Info is the detail of one task from "mise tasks info --json".
type Info struct {
	Task
	// Env lists KEY=VALUE pairs in the order mise reports them.
	Env []string
	// Tools maps tool names to requested versions.
	Tools map[string]string
	// Usage is the task's usage spec, if it declares one.
	Usage string
}

// ParseInfo decodes the output of "mise tasks info --json". The fields whose
// shape differs between mise releases (run, env, tools, usage) are read
// leniently.
func ParseInfo(data []byte) (Info, error) {
	if !gjson.ValidBytes(data) {
		return Info{}, fmt.Errorf("failed to parse mise task info JSON: invalid JSON")
	}
	doc := gjson.ParseBytes(data)

	info := Info{
		Task: Task{
			Name:        doc.Get("name").String(),
			Aliases:     stringList(doc.Get("aliases")),
			Description: doc.Get("description").String(),
			Source:      doc.Get("source").String(),
			Depends:     stringList(doc.Get("depends")),
			DependsPost: stringList(doc.Get("depends_post")),
			WaitFor:     stringList(doc.Get("wait_for")),
			Dir:         doc.Get("dir").String(),
			Hide:        doc.Get("hide").Bool(),
			Raw:         doc.Get("raw").Bool(),
			Sources:     stringList(doc.Get("sources")),
			Outputs:     stringList(doc.Get("outputs")),
			Shell:       doc.Get("shell").String(),
			Quiet:       doc.Get("quiet").Bool(),
			Silent:      doc.Get("silent").Bool(),
			Run:         Script(stringList(doc.Get("run"))),
			File:        doc.Get("file").String(),
		},
		Tools: make(map[string]string),
	}

	env := doc.Get("env")
	switch {
	case env.IsObject():
		env.ForEach(func(k, v gjson.Result) bool {
			info.Env = append(info.Env, k.String()+"="+v.String())
			return true
		})
	case env.IsArray():
		env.ForEach(func(_, v gjson.Result) bool {
			if v.IsObject() {
				v.ForEach(func(k, val gjson.Result) bool {
					info.Env = append(info.Env, k.String()+"="+val.String())
					return true
				})
			} else {
				info.Env = append(info.Env, v.String())
			}
			return true
		})
	}

	doc.Get("tools").ForEach(func(k, v gjson.Result) bool {
		info.Tools[k.String()] = v.String()
		return true
	})

	if usage := doc.Get("usage_spec"); usage.Exists() && usage.Type != gjson.Null {
		if usage.Type == gjson.String {
			info.Usage = usage.String()
		} else {
			info.Usage = usage.Raw
		}
	}

	return info, nil
}

func stringList(r gjson.Result) []string {
	switch {
	case !r.Exists() || r.Type == gjson.Null:
		return nil
	case r.IsArray():
		var out []string
		for _, v := range r.Array() {
			out = append(out, v.String())
		}
		return out
	case r.String() == "":
		return nil
	default:
		return []string{r.String()}
	}
}

// EditPath is the file to open when editing the task: its script file,
// then its definition source, then the working directory.
func (i Info) EditPath() string {
	switch {
	case i.File != "":
		return i.File
	case i.Source != "":
		return i.Source
	default:
		return "."
	}
}

// Summary renders the info as the lines shown in the task detail pane.
func (i Info) Summary() []string {
	lines := []string{"Task: " + i.Name}
	if i.Description != "" {
		lines = append(lines, "Description: "+i.Description)
	}
	if len(i.Aliases) > 0 {
		lines = append(lines, "Aliases: "+strings.Join(i.Aliases, ", "))
	}
	if i.Source != "" {
		lines = append(lines, "Source: "+i.Source)
	}
	if i.File != "" {
		lines = append(lines, "File: "+i.File)
	}
	if i.Dir != "" {
		lines = append(lines, "Dir: "+i.Dir)
	}
	if len(i.Depends) > 0 {
		lines = append(lines, "Depends: "+strings.Join(i.Depends, ", "))
	}
	if len(i.Tools) > 0 {
		keys := make([]string, 0, len(i.Tools))
		for k := range i.Tools {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for j, k := range keys {
			keys[j] = k + "@" + i.Tools[k]
		}
		lines = append(lines, "Tools: "+strings.Join(keys, ", "))
	}
	if len(i.Env) > 0 {
		lines = append(lines, "Env:")
		for _, e := range i.Env {
			lines = append(lines, "  "+e)
		}
	}
	if len(i.Run) > 0 {
		lines = append(lines, "Run:")
		for _, r := range i.Run {
			for l := range strings.SplitSeq(r, "\n") {
				lines = append(lines, "  "+l)
			}
		}
	}
	return lines
}
