package e2e

import (
	"context"
	"errors"

	"github.com/go-logr/logr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/afero"

	"github.com/imamik/xtserver/internal/config"
	"github.com/imamik/xtserver/internal/plans"
	"github.com/imamik/xtserver/internal/provisioning"
	"github.com/imamik/xtserver/internal/runner"
	"github.com/imamik/xtserver/internal/tasks/database"
	"github.com/imamik/xtserver/internal/tasks/syspolicy"
	xttesting "github.com/imamik/xtserver/internal/testing"
)

var _ = Describe("Provisioning lifecycle", func() {
	var (
		fs   afero.Fs
		ex   *xttesting.FakeExecutor
		obs  *recorder
		deps plans.Deps
		fetc *fetcher
	)

	run := func(plan string, opts *config.Options) (*provisioning.Context, error) {
		Expect(opts.Set(config.PlanNameKey, plan)).To(Succeed())
		ctx := provisioning.NewContext(context.Background(), opts, ex, fs, logr.Discard())
		ctx.Observer = obs
		return ctx, provisioning.NewSequencer(plans.Lookup(plan, deps)...).Run(ctx)
	}

	installOptions := func() *config.Options {
		opts := config.NewOptions()
		opts.MustSet("xt.name", "acme")
		opts.MustSet("xt.version", "4.11.0")
		opts.MustSet("xt.maindb", "/srv/backups/acme.backup")
		opts.MustSet("xt.quickstart", true)
		opts.MustSet("xt.demo", true)
		opts.MustSet("xt.edition", "manufacturing")
		return opts
	}

	BeforeEach(func() {
		fs = afero.NewMemMapFs()
		ex = xttesting.NewFakeExecutor()
		obs = &recorder{}
		fetc = &fetcher{}
		deps = plans.Deps{
			Fs:       fs,
			Fetcher:  fetc,
			Password: func() (string, error) { return "Pw0rdFixed", nil },
			Version:  "4.11.0",
		}
		Expect(afero.WriteFile(fs, "/srv/backups/acme.backup", []byte("PGDMP"), 0o644)).To(Succeed())
	})

	Context("setup then install", func() {
		It("prepares the machine and builds every database in order", func() {
			By("running the setup plan")
			setupCtx, err := run(plans.Setup, config.NewOptions())
			Expect(err).NotTo(HaveOccurred())
			Expect(setupCtx.Options.String(syspolicy.StateKey)).To(Equal(string(syspolicy.StateValidated)))
			input, _ := ex.Input("chpasswd")
			Expect(input).To(Equal("xtremote:Pw0rdFixed\n"))
			Expect(ex.Calls()).NotTo(ContainElement(ContainSubstring("Pw0rdFixed")))
			Expect(afero.Exists(fs, "/etc/sudoers.d/XT00-xtuple-global-policy")).To(BeTrue())
			Expect(afero.Exists(fs, "/etc/webmin/custom/1001.cmd")).To(BeTrue())
			Expect(fetc.calls).To(Equal(1))

			By("running the install plan")
			ex.Fail("id -u acme", 1, "id: 'acme': no such user")
			installCtx, err := run(plans.Install, installOptions())
			Expect(err).NotTo(HaveOccurred())

			records := database.Scheduled(installCtx.Options)
			Expect(records).To(HaveLen(3))
			Expect(records[2].DBName).To(Equal("acme_live"))

			quickstart := ex.Index("-d xtuple_quickstart")
			demo := ex.Index("-d xtuple_demo")
			core := ex.Index("-d acme_live -i -b /srv/backups/acme.backup")
			inventory := ex.Index("-d acme_live -e /usr/local/acme/private-extensions/source/inventory")
			manufacturing := ex.Index("-d acme_live -e /usr/local/acme/private-extensions/source/manufacturing")
			Expect(quickstart).To(BeNumerically(">=", 0))
			Expect(quickstart).To(BeNumerically("<", demo))
			Expect(demo).To(BeNumerically("<", core))
			Expect(core).To(BeNumerically("<", inventory))
			Expect(inventory).To(BeNumerically("<", manufacturing))

			Expect(ex.Ran("useradd acme -d /usr/local/acme")).To(BeTrue())
			Expect(afero.Exists(fs, "/etc/sudoers.d/XT10-acme-policy")).To(BeTrue())
			Expect(ex.Ran("rm -f /root/.bash_history")).To(BeTrue())

			Expect(obs.ofType(provisioning.EventPlanCompleted)).To(HaveLen(2))
			Expect(obs.ofType(provisioning.EventPlanFailed)).To(BeEmpty())
		})

		It("is repeatable", func() {
			_, err := run(plans.Setup, config.NewOptions())
			Expect(err).NotTo(HaveOccurred())
			_, err = run(plans.Setup, config.NewOptions())
			Expect(err).NotTo(HaveOccurred())

			_, err = run(plans.Install, installOptions())
			Expect(err).NotTo(HaveOccurred())
			_, err = run(plans.Install, installOptions())
			Expect(err).NotTo(HaveOccurred())

			Expect(fetc.calls).To(Equal(1), "the cached package is reused")
			Expect(ex.Matching("useradd acme")).To(BeEmpty(), "an existing user is left alone")
		})
	})

	Context("when a build step fails", func() {
		It("stops at the failing step and reports its output", func() {
			ex.Fail("-e /usr/local/acme/private-extensions/source/inventory", 1, "ERROR: function xt.js_init() does not exist")

			_, err := run(plans.Install, installOptions())

			Expect(err).To(HaveOccurred())
			var pe *provisioning.PhaseError
			Expect(errors.As(err, &pe)).To(BeTrue())
			Expect(pe.Phase).To(Equal(provisioning.PhaseExecuteTask))
			Expect(pe.Task).To(Equal(database.Name))

			var bf *runner.BuildFailure
			Expect(errors.As(err, &bf)).To(BeTrue())
			Expect(bf.Output()).To(ContainSubstring("xt.js_init() does not exist"))

			Expect(ex.Ran("source/manufacturing")).To(BeFalse())
			Expect(ex.Ran("id -u acme")).To(BeFalse(), "later modules never run")
			Expect(obs.ofType(provisioning.EventPlanFailed)).To(HaveLen(1))
		})
	})

	Context("when options are invalid", func() {
		It("fails before any module runs", func() {
			opts := installOptions()
			opts.MustSet("xt.edition", "ultimate")
			opts.MustSet("xt.mode", "Live1")

			_, err := run(plans.Install, opts)

			Expect(err).To(HaveOccurred())
			Expect(config.IsValidation(err)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("xt.edition"))
			Expect(err.Error()).To(ContainSubstring("xt.mode"))
			Expect(ex.Calls()).To(BeEmpty())
		})
	})

	Context("uninstall", func() {
		It("removes the console customisations and keeps everything else", func() {
			_, err := run(plans.Setup, config.NewOptions())
			Expect(err).NotTo(HaveOccurred())
			_, err = run(plans.Install, installOptions())
			Expect(err).NotTo(HaveOccurred())
			calls := len(ex.Calls())

			opts := config.NewOptions()
			opts.MustSet("xt.name", "acme")
			ctx := provisioning.NewContext(context.Background(), opts, ex, fs, logr.Discard())
			Expect(provisioning.NewSequencer(plans.Uninstallable(deps)...).Uninstall(ctx)).To(Succeed())

			Expect(afero.Exists(fs, "/etc/webmin/custom/1001.cmd")).To(BeFalse())
			Expect(afero.Exists(fs, "/etc/webmin/xtuple/editions.menu")).To(BeFalse())
			Expect(afero.Exists(fs, "/etc/sudoers.d/XT10-acme-policy")).To(BeTrue())
			Expect(ex.Calls()).To(HaveLen(calls))
		})
	})
})
