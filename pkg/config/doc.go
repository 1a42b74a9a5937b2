// Package config provides configuration loading and validation for xteps.
//
// Configuration is loaded with the following precedence (lowest to highest):
//   - Default values
//   - YAML configuration file
//   - Environment variables (XTEPS_ prefix)
//
// Example YAML:
//
//	enabled: true
//	hooks:
//	  order: priority_desc
//	  thread_order: insertion_reverse
//	report:
//	  listeners: [log, stats, json]
//	  json_path: build/xteps/steps.jsonl
//	  stats_max_duration: 30m
//	logging:
//	  level: debug
//	  format: json
//	  output: file
//	  file_path: build/xteps/xteps.log
package config
