package app

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"portfolio/api/internal/export"
	"portfolio/api/internal/store"
)

func (s *Service) GetProfile(ctx context.Context) Result[store.Profile] {
	profile, err := s.store.GetProfile(ctx)
	if err != nil {
		return fail[store.Profile](err)
	}
	return ok(profile)
}

func (s *Service) SaveProfile(ctx context.Context, profile store.Profile) Result[store.Profile] {
	profile.Name = sanitizePlain(profile.Name)
	profile.Headline = sanitizePlain(profile.Headline)
	profile.Bio = sanitizeRich(profile.Bio)
	profile.Location = sanitizePlain(profile.Location)
	profile.Email = strings.TrimSpace(profile.Email)
	profile.AvatarURL = strings.TrimSpace(profile.AvatarURL)
	profile.ResumeURL = strings.TrimSpace(profile.ResumeURL)
	socials := make(map[string]string, len(profile.Socials))
	for name, link := range profile.Socials {
		name, link = strings.TrimSpace(name), strings.TrimSpace(link)
		if name != "" && link != "" {
			socials[name] = link
		}
	}
	profile.Socials = socials
	if err := validateStruct(profile); err != nil {
		return fail[store.Profile](err)
	}
	saved, err := s.store.SaveProfile(ctx, profile)
	if err != nil {
		return fail[store.Profile](err)
	}
	return ok(saved)
}

// About is the public about page: the profile and every visible section.
type About struct {
	Profile     store.Profile      `json:"profile"`
	Experiences []store.Experience `json:"experiences"`
	Education   []store.Education  `json:"education"`
	Skills      []store.Skill      `json:"skills"`
}

func (s *Service) About(ctx context.Context, locale string) Result[About] {
	about, err := s.loadAbout(ctx, locale)
	if err != nil {
		return fail[About](err)
	}
	return ok(about)
}

func (s *Service) loadAbout(ctx context.Context, locale string) (About, error) {
	visible := true
	filter := store.ListFilter{Visible: &visible, Locale: locale}
	var about About

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		profile, err := s.store.GetProfile(gctx)
		about.Profile = profile
		return err
	})
	g.Go(func() error {
		result := s.experiences.List(gctx, filter)
		about.Experiences = result.Data
		return result.Err()
	})
	g.Go(func() error {
		result := s.education.List(gctx, filter)
		about.Education = result.Data
		return result.Err()
	})
	g.Go(func() error {
		result := s.skills.List(gctx, filter)
		about.Skills = result.Data
		return result.Err()
	})
	if err := g.Wait(); err != nil {
		return About{}, err
	}
	return about, nil
}

// Resume renders the public about data in format.
func (s *Service) Resume(ctx context.Context, format export.Format, locale string) (*export.Result, error) {
	about, err := s.loadAbout(ctx, locale)
	if err != nil {
		return nil, err
	}
	return s.exporter.Export(ctx, export.Resume{
		Profile:     about.Profile,
		Experiences: about.Experiences,
		Education:   about.Education,
		Skills:      about.Skills,
		GeneratedAt: s.now(),
	}, format)
}
