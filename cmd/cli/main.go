package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"opportunity_engine/pkg/core/document"
	"opportunity_engine/pkg/core/driver"
	"opportunity_engine/pkg/core/evidence"
	"opportunity_engine/pkg/core/metrics"
	"opportunity_engine/pkg/core/template"
	"opportunity_engine/pkg/core/utils"
	"opportunity_engine/pkg/core/verify"
)

func main() {
	file := flag.String("file", "", "path to the assumption document (json or hjson)")
	mode := flag.String("mode", "calculate", "calculate | sweep | explain | validate")
	metric := flag.String("metric", "npv", "metric key for explain mode")
	month := flag.Int("month", 0, "month for per-period metrics in explain mode")
	driverKey := flag.String("driver", "", "driver key for sweep mode (empty sweeps all)")
	asJSON := flag.Bool("json", false, "print raw JSON instead of a summary")
	flag.Parse()

	if *file == "" {
		log.Fatal("Error: -file is required.")
	}

	raw, err := os.ReadFile(*file)
	if err != nil {
		log.Fatalf("Error reading %s: %v", *file, err)
	}
	doc, err := utils.ParseDocument(string(raw))
	if err != nil {
		log.Fatalf("Error parsing document: %v", err)
	}

	switch *mode {
	case "calculate":
		runCalculate(doc, *asJSON)
	case "sweep":
		runSweep(doc, *driverKey, *asJSON)
	case "explain":
		runExplain(doc, *metric, *month)
	case "validate":
		runValidate(doc)
	default:
		log.Fatalf("Unknown mode %q", *mode)
	}
}

func runCalculate(doc document.Document, asJSON bool) {
	calc, err := metrics.Calculate(doc)
	if err != nil {
		log.Fatalf("Calculation failed: %v", err)
	}
	if asJSON {
		printJSON(calc)
		return
	}

	currency := doc.Currency()
	fmt.Printf("Scenario: %s (%s, %d months)\n", doc.Title(), doc.BusinessModel(), doc.Periods())
	fmt.Printf("  Total Revenue:        %s\n", utils.FormatCurrency(calc.TotalRevenue, currency))
	fmt.Printf("  Net Profit:           %s\n", utils.FormatCurrency(calc.NetProfit, currency))
	fmt.Printf("  NPV:                  %s\n", utils.FormatCurrency(calc.NPV, currency))
	if calc.IRR == metrics.IRRNoSolution {
		fmt.Printf("  IRR:                  n/a (cash flows never change sign)\n")
	} else {
		fmt.Printf("  IRR:                  %s\n", utils.FormatPercent(calc.IRR))
	}
	fmt.Printf("  Payback Period:       %s\n", formatMonth(calc.PaybackPeriod))
	fmt.Printf("  Break-even Month:     %s\n", formatMonth(calc.BreakEvenMonth))
	fmt.Printf("  Investment Required:  %s\n", utils.FormatCurrency(calc.TotalInvestmentRequired, currency))

	check := verify.CheckSchedule(calc.MonthlyData)
	if !check.IsConsistent {
		fmt.Println("⚠️  Schedule integrity warnings:")
		for _, warning := range check.Warnings {
			fmt.Printf("   - %s\n", warning)
		}
	}
}

func runSweep(doc document.Document, driverKey string, asJSON bool) {
	if driverKey != "" {
		drv, ok := doc.DriverByKey(driverKey)
		if !ok {
			log.Fatalf("Driver not found: %s", driverKey)
		}
		result, err := driver.Sweep(doc, drv)
		if err != nil {
			log.Fatalf("Sweep failed: %v", err)
		}
		if asJSON {
			printJSON(result)
			return
		}
		fmt.Printf("Driver %s (%s)\n", result.DriverKey, result.Path)
		for _, point := range result.Points {
			fmt.Printf("  %-10s %12.4f  NPV %s\n", point.Label, point.Value,
				utils.FormatCurrency(point.Metrics.NPV, doc.Currency()))
		}
		fmt.Printf("  NPV spread: %s\n", utils.FormatCurrency(result.NPVSpread, doc.Currency()))
		return
	}

	summary, err := driver.Summarize(doc)
	if err != nil {
		log.Fatalf("Sweep failed: %v", err)
	}
	if asJSON {
		printJSON(summary)
		return
	}
	fmt.Printf("Baseline NPV: %s\n", utils.FormatCurrency(summary.BaselineNPV, doc.Currency()))
	fmt.Println("Drivers by NPV spread:")
	for i, ranking := range summary.Rankings {
		fmt.Printf("  %d. %-20s %s\n", i+1, ranking.Key,
			utils.FormatCurrency(ranking.NPVSpread, doc.Currency()))
	}
}

func runExplain(doc document.Document, metric string, month int) {
	calc, err := metrics.Calculate(doc)
	if err != nil {
		log.Fatalf("Calculation failed: %v", err)
	}
	trail, err := evidence.Build(doc, calc.MonthlyData, evidence.Request{MetricKey: metric, Month: month})
	if err != nil {
		log.Fatalf("Evidence build failed: %v", err)
	}
	printTree(trail.Root, 0)
}

func runValidate(doc document.Document) {
	result, err := template.Validate(doc)
	if err != nil {
		log.Fatalf("Validation failed to run: %v", err)
	}
	if result.Valid {
		fmt.Println("✅ Document is valid.")
		return
	}
	fmt.Println("❌ Document has schema violations:")
	for _, msg := range result.Errors {
		fmt.Printf("   - %s\n", msg)
	}
	os.Exit(1)
}

func printTree(node *evidence.Node, depth int) {
	for i := 0; i < depth; i++ {
		fmt.Print("  ")
	}
	marker := ""
	if node.IsDriver {
		marker = " [driver]"
	}
	fmt.Printf("%s = %.4f", node.Label, node.Value)
	if node.Formula != "" {
		fmt.Printf("  (%s)", node.Formula)
	}
	fmt.Println(marker)
	for _, child := range node.Children {
		printTree(child, depth+1)
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

func formatMonth(m int) string {
	if m == 0 {
		return "never within horizon"
	}
	return fmt.Sprintf("month %d", m)
}
