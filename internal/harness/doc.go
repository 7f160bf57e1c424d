// Package harness runs reconciliation scenarios against a fresh database.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: cpu_load_triggers
//	description: "What this scenario validates"
//	kind: trigger
//	prototype: 500
//	fixtures: [host, trigger]
//	setup:
//	  - INSERT INTO ...
//	runs:
//	  - rows:
//	      - macros: {CPUNAME: cpu0}
//	        links: [{prototype: 1000, item: 100}]
//	    expect:
//	      created: 1
//	      statements: 3
//	  - setup:
//	      - UPDATE triggers SET priority=5 WHERE triggerid=500
//	    rows: ...
//	    expect:
//	      updated: 1
//	      problems: ["already exists"]
//	assertions:
//	  - type: final_state
//	    table: triggers
//	    where: { triggerid: 501 }
//	    expect: { description: "CPU load on cpu0" }
//	  - type: row_count
//	    table: functions
//	    count: 2
//
// Rows use the row file format of package rows and are validated the same
// way. Each run is one evaluation of the prototype; setup statements of a
// run execute before it, which is how scenarios edit the prototype between
// evaluations.
//
// # Assertion Types
//
//   - final_state: Queries one row of a table and verifies expected values
//   - row_count: Counts the rows of a table matching the where clause
//
// # Deterministic Testing
//
// Every scenario runs in its own in-memory SQLite database with run ids
// "run-1", "run-2", ... so that the statement log of a scenario is stable
// and can be compared against a golden file.
package harness
