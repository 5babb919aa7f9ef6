// Package job holds the job-control data model of the shell.
//
// A Job is a child process identified by its pid. A Table tracks one
// foreground Job and a bounded number of background Jobs. A Resolver turns
// the result of waiting on a process into a Status.
//
// Jobs that terminate stay in the Table, marked with a terminal Status,
// until the shell has reported them to the user.
package job
