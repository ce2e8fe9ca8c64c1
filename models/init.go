package models

import "gorm.io/gorm"

// AutoMigrate creates or updates every table the portal uses.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&ProfileSave{},
		&Team{},
		&TeamMember{},
		&HardwareItem{},
		&Purchase{},
	)
}

// SeedHardwareCatalog inserts the default kit list. Existing items are
// matched by name and left untouched, so restarts never reset stock.
func SeedHardwareCatalog(db *gorm.DB) error {
	defaultItems := []HardwareItem{
		{
			Name:          "Elegoo Kit",
			Description:   "Uno R3 starter kit with breadboard, jumpers, LEDs and basic sensors",
			Cost:          50,
			Stock:         40,
			Category:      "Microcontrollers",
			Compatibility: "Arduino",
		},
		{
			Name:          "Raspberry Pi",
			Description:   "Raspberry Pi 4 Model B, 4GB, with power supply and SD card",
			Cost:          75,
			Stock:         20,
			Category:      "Microcontrollers",
			Compatibility: "Raspberry Pi",
		},
		{
			Name:          "Audio Kit",
			Description:   "I2S microphone, amplifier breakout and speaker",
			Cost:          30,
			Stock:         15,
			Category:      "Sensor Kits",
			Compatibility: "Arduino, Raspberry Pi",
		},
		{
			Name:          "Camera Kit",
			Description:   "Pi camera module v2 with ribbon cable",
			Cost:          35,
			Stock:         15,
			Category:      "Sensor Kits",
			Compatibility: "Raspberry Pi",
		},
		{
			Name:          "Motion Detection Kit",
			Description:   "PIR sensors, ultrasonic rangefinder and IMU breakout",
			Cost:          25,
			Stock:         20,
			Category:      "Sensor Kits",
			Compatibility: "Arduino, Raspberry Pi",
		},
		{
			Name:          "Advanced Sensors",
			Description:   "Gas, humidity, pressure and light sensors",
			Cost:          40,
			Stock:         10,
			Category:      "Sensor Kits",
			Compatibility: "Arduino, Raspberry Pi",
		},
		{
			Name:          "Servo Motors",
			Description:   "Pack of 4 SG90 micro servos",
			Cost:          15,
			Stock:         30,
			Category:      "Motors",
			Compatibility: "Arduino, Raspberry Pi",
		},
		{
			Name:          "Stepper Motors",
			Description:   "NEMA 17 stepper with A4988 driver",
			Cost:          25,
			Stock:         12,
			Category:      "Motors",
			Compatibility: "Arduino",
		},
		{
			Name:          "Brushed DC Motors",
			Description:   "Pair of geared DC motors with L298N driver board",
			Cost:          20,
			Stock:         20,
			Category:      "Motors",
			Compatibility: "Arduino, Raspberry Pi",
		},
	}
	for _, item := range defaultItems {
		if err := db.FirstOrCreate(&item, "name = ?", item.Name).Error; err != nil {
			return err
		}
	}
	return nil
}
