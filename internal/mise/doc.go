// Package mise talks to the mise task runner.
//
// [Client] discovers and describes tasks by shelling out to
// "mise tasks ls --json" and "mise tasks info --json", and edits task
// definitions in mise.toml files or mise-tasks directories. [Runner] runs a
// task with "mise run" and streams its output line by line. [Watcher]
// reports changes to the files mise reads task definitions from.
package mise
