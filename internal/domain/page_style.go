package domain

import "fmt"

type Platform string

const (
	PlatformFacebook   Platform = "facebook"
	PlatformInstagram  Platform = "instagram"
	PlatformWhatsApp   Platform = "whatsapp"
	PlatformTelegram   Platform = "telegram"
	PlatformTikTok     Platform = "tiktok"
	PlatformYouTube    Platform = "youtube"
	PlatformTwitter    Platform = "twitter"
	PlatformLinkedIn   Platform = "linkedin"
	PlatformAmazon     Platform = "amazon"
	PlatformShopee     Platform = "shopee"
	PlatformAliExpress Platform = "aliexpress"
)

// Platforms is the set of social icons the editor offers, in display order.
var Platforms = []Platform{
	PlatformFacebook, PlatformInstagram, PlatformWhatsApp, PlatformTelegram,
	PlatformTikTok, PlatformYouTube, PlatformTwitter, PlatformLinkedIn,
	PlatformAmazon, PlatformShopee, PlatformAliExpress,
}

func (p Platform) Valid() bool {
	for _, v := range Platforms {
		if v == p {
			return true
		}
	}
	return false
}

type SocialIcon struct {
	Platform Platform `json:"platform"`
	URL      string   `json:"url"`
}

// PageStyle holds the page-level settings shown above the block column.
type PageStyle struct {
	BackgroundColor    string       `json:"backgroundColor"`
	Banner             Asset        `json:"banner"`
	Icon               Asset        `json:"icon"`
	Title              string       `json:"title"`
	TitleColor         string       `json:"titleColor"`
	Subtitle           string       `json:"subtitle"`
	SubtitleColor      string       `json:"subtitleColor"`
	TopLinksBackground string       `json:"topLinksBackground"`
	TopLinksColor      string       `json:"topLinksColor"`
	SocialIcons        []SocialIcon `json:"socialIcons"`
}

func DefaultPageStyle() PageStyle {
	return PageStyle{
		BackgroundColor:    "#F3FDC4",
		Banner:             RemoteAsset("/top-banner-linkiwi.png"),
		Icon:               RemoteAsset("/icon-linkiwi.svg"),
		Title:              "Linkiwi",
		TitleColor:         "black",
		Subtitle:           "Sua página de links profissional em minutos de maneira simples e prática! ",
		SubtitleColor:      "black",
		TopLinksBackground: "#5C9E31",
		TopLinksColor:      "white",
		SocialIcons: []SocialIcon{
			{Platform: PlatformFacebook, URL: "https://facebook.com"},
			{Platform: PlatformInstagram, URL: "https://instagram.com"},
			{Platform: PlatformWhatsApp, URL: "https://whatsapp.com"},
			{Platform: PlatformTelegram, URL: "https://telegram.com"},
		},
	}
}

func (s PageStyle) Clone() PageStyle {
	c := s
	c.SocialIcons = append([]SocialIcon(nil), s.SocialIcons...)
	return c
}

// HasSocialIcon reports whether the platform is currently shown.
func (s PageStyle) HasSocialIcon(p Platform) bool {
	for _, ic := range s.SocialIcons {
		if ic.Platform == p {
			return true
		}
	}
	return false
}

// ToggleSocialIcon adds the platform at the end or removes it.
func (s *PageStyle) ToggleSocialIcon(p Platform) error {
	if !p.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownPlatform, p)
	}
	for i, ic := range s.SocialIcons {
		if ic.Platform == p {
			s.SocialIcons = append(s.SocialIcons[:i:i], s.SocialIcons[i+1:]...)
			return nil
		}
	}
	s.SocialIcons = append(s.SocialIcons, SocialIcon{Platform: p})
	return nil
}

// SetSocialURL sets the link of an active icon; no-op if the icon is off.
func (s *PageStyle) SetSocialURL(p Platform, url string) error {
	if !p.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownPlatform, p)
	}
	for i := range s.SocialIcons {
		if s.SocialIcons[i].Platform == p {
			s.SocialIcons[i].URL = url
		}
	}
	return nil
}

// PageStylePatch edits text and color settings. Banner and icon go through
// the asset operations of the session.
type PageStylePatch struct {
	BackgroundColor    *string `json:"backgroundColor,omitempty"`
	Title              *string `json:"title,omitempty"`
	TitleColor         *string `json:"titleColor,omitempty"`
	Subtitle           *string `json:"subtitle,omitempty"`
	SubtitleColor      *string `json:"subtitleColor,omitempty"`
	TopLinksBackground *string `json:"topLinksBackground,omitempty"`
	TopLinksColor      *string `json:"topLinksColor,omitempty"`
}

// Apply edits s in place. An invalid color fails the whole patch and s is
// left untouched.
func (s *PageStyle) Apply(p PageStylePatch) error {
	if err := checkColors(map[string]*string{
		"backgroundColor":    p.BackgroundColor,
		"titleColor":         p.TitleColor,
		"subtitleColor":      p.SubtitleColor,
		"topLinksBackground": p.TopLinksBackground,
		"topLinksColor":      p.TopLinksColor,
	}); err != nil {
		return err
	}
	setString(&s.BackgroundColor, p.BackgroundColor)
	setString(&s.Title, p.Title)
	setString(&s.TitleColor, p.TitleColor)
	setString(&s.Subtitle, p.Subtitle)
	setString(&s.SubtitleColor, p.SubtitleColor)
	setString(&s.TopLinksBackground, p.TopLinksBackground)
	setString(&s.TopLinksColor, p.TopLinksColor)
	return nil
}
