/*
Package cli renders compiled plugging plans for the mesa command line.

Three output formats are supported: json (the full plan document), csv
(the filing-facing export rows, one row per step), and text (a terse
operator summary).

	format, err := cli.ParseFormat("csv")
	if err != nil {
		return err
	}
	if err := cli.WritePlan(os.Stdout, compiled, format); err != nil {
		return err
	}
*/
package cli
