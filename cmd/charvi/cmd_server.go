package main

import (
	"fmt"
	"os"
	"os/exec"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/charvilabs/charvi/app/controllers"
	"github.com/charvilabs/charvi/app/routes"
	"github.com/charvilabs/charvi/internal/server"
	"github.com/charvilabs/charvi/pkg/router"
)

// charvi run — start the HTTP server.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the HTTP server (alias: serve)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return server.Start()
	},
}

// charvi serve — alias kept for muscle memory.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return server.Start()
	},
}

// charvi route:list — print all registered routes.
var routeListCmd = &cobra.Command{
	Use:   "route:list",
	Short: "List all registered named routes",
	RunE: func(cmd *cobra.Command, args []string) error {
		r := router.New()
		// Registration only records method, path and name; the handlers are
		// never invoked, so controllers built on nil services are fine here.
		routes.RegisterAPI(r, &routes.Controllers{
			Auth:     controllers.NewAuthController(nil),
			Products: controllers.NewProductController(nil, nil),
			Carts:    controllers.NewCartController(nil),
			Orders:   controllers.NewOrderController(nil),
			Checkout: controllers.NewCheckoutController(nil),
			Chat:     controllers.NewChatController(nil),
			Wishlist: controllers.NewWishlistController(nil),
			Address:  controllers.NewAddressController(nil),
			Admin:    controllers.NewAdminController(nil),
		})

		infos := r.Routes()
		if len(infos) == 0 {
			fmt.Println("No named routes registered.")
			return nil
		}

		// Sort by path then method.
		sort.Slice(infos, func(i, j int) bool {
			if infos[i].Path != infos[j].Path {
				return infos[i].Path < infos[j].Path
			}
			return infos[i].Method < infos[j].Method
		})

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "METHOD\tPATH\tNAME")
		fmt.Fprintln(w, "------\t----\t----")
		for _, ri := range infos {
			fmt.Fprintf(w, "%s\t%s\t%s\n", ri.Method, ri.Path, ri.Name)
		}
		return w.Flush()
	},
}

// charvi build — compile the server binary.
var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the charvi server binary (outputs ./charvi)",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("Building charvi…")
		c := exec.Command("go", "build", "-o", "charvi", "./cmd/server")
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("build failed: %w", err)
		}
		fmt.Println("✅  Built: ./charvi")
		return nil
	},
}
