package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"

	appconfig "github.com/wolfman30/lead-relay/internal/config"
	"github.com/wolfman30/lead-relay/internal/leads"
	"github.com/wolfman30/lead-relay/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	exitFn(run(os.Args[1:], os.Stdout, os.Stderr))
}

var exitFn = os.Exit

func run(args []string, stdout io.Writer, stderr io.Writer) int {
	fs := flag.NewFlagSet("sendlead", flag.ContinueOnError)
	fs.SetOutput(stderr)
	crmURL := fs.String("crm-url", envOrDefault("CRM_URL", appconfig.DefaultCRMURL), "CRM endpoint")
	integrationID := fs.String("integration-id", os.Getenv("INTEGRATION_ID"), "integration id")
	phone := fs.String("phone", "", "lead phone number")
	city := fs.String("city", os.Getenv("INTEGRATION_CITY"), "lead city")
	situation := fs.String("situation", "", "problem description")
	name := fs.String("name", "", "lead name")
	leadID := fs.String("lead-id", "", "caller-side lead id")
	testLead := fs.Bool("test", false, "mark the lead as a test lead")
	timeout := fs.Duration("timeout", leads.DefaultForwardTimeout, "CRM request timeout")
	logLevel := fs.String("log-level", "error", "log level")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	lead := leads.Lead{}
	set := func(field, value string) {
		if value != "" {
			lead[field] = value
		}
	}
	set(leads.FieldIntegrationID, *integrationID)
	set(leads.FieldPhone, *phone)
	set(leads.FieldCity, *city)
	set(leads.FieldSituation, *situation)
	set(leads.FieldName, *name)
	set(leads.FieldLeadID, *leadID)
	if *testLead {
		lead[leads.FieldTest] = "true"
	}

	logger := logging.NewWithWriter(*logLevel, stderr)
	if verdict := leads.NewValidator(leads.DefaultSchema(), logger).Validate(lead); !verdict.OK {
		fmt.Fprintf(stdout, "FAIL: %s\n", verdict.Reason)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout+time.Second)
	defer cancel()

	client := leads.NewCRMClient(*crmURL, *timeout, leads.WithLogger(logger))
	result := client.Forward(ctx, lead)
	if !result.OK {
		fmt.Fprintf(stdout, "FAIL: %s\n", result.Reason)
		return 1
	}
	fmt.Fprintln(stdout, "SUCCESS")
	return 0
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
